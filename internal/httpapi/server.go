package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/studychat/internal/chat"
	"github.com/ent0n29/studychat/internal/config"
	"github.com/ent0n29/studychat/internal/observability"
	"github.com/ent0n29/studychat/internal/study"
)

// ChatService runs chat turns and answers task-type lookups.
type ChatService interface {
	Turn(ctx context.Context, req chat.TurnRequest) (chat.TurnResult, error)
	SessionOneTaskType(ctx context.Context, participantID string) (study.TaskType, error)
}

// StoreStatus is the slice of the transcript store the health routes need.
type StoreStatus interface {
	Ping(ctx context.Context) error
	Mode() string
}

type Deps struct {
	Chat               ChatService
	Store              StoreStatus
	CompletionProvider string
	Metrics            *observability.Metrics
	Logger             *slog.Logger
}

type Server struct {
	cfg      config.Config
	chat     ChatService
	store    StoreStatus
	provider string
	metrics  *observability.Metrics
	log      *slog.Logger
	cors     cors
	upgrader websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	c := newCORS(cfg.AllowedOrigins, cfg.DefaultOrigin())
	return &Server{
		cfg:      cfg,
		chat:     deps.Chat,
		store:    deps.Store,
		provider: deps.CompletionProvider,
		metrics:  deps.Metrics,
		log:      log,
		cors:     c,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				return c.allowed(origin)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.countRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Options("/api/chat", s.handlePreflight(chatMethods))
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/ws", s.handleChatWS)

	r.Options("/api/get-task", s.handlePreflight(getTaskMethods))
	r.Get("/api/get-task", s.handleGetTask)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store":      s.storeMode(),
		"completion": s.provider,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.log.WarnContext(r.Context(), "readiness check failed", "store", s.storeMode(), "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"store":  s.storeMode(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"store":  s.storeMode(),
	})
}

func (s *Server) storeMode() string {
	if s.store == nil {
		return "disabled"
	}
	return s.store.Mode()
}

type ctxKey int

const requestIDKey ctxKey = iota

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.metrics == nil {
			return
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = r.Method + " " + rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
