package httpapi

import (
	"net/http"
	"strings"
)

const (
	chatMethods    = "POST, OPTIONS"
	getTaskMethods = "POST, GET, OPTIONS"
	allowedHeaders = "Content-Type, Authorization"
)

// cors echoes the request Origin when it is on the allow-list and falls back
// to the survey platform origin otherwise. Requests are never rejected here.
type cors struct {
	origins  map[string]struct{}
	fallback string
}

func newCORS(origins []string, fallback string) cors {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = normalizeOrigin(o); o != "" {
			set[o] = struct{}{}
		}
	}
	return cors{origins: set, fallback: fallback}
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}

func (c cors) allowed(origin string) bool {
	_, ok := c.origins[normalizeOrigin(origin)]
	return ok
}

func (c cors) allowOrigin(origin string) string {
	if c.allowed(origin) {
		return normalizeOrigin(origin)
	}
	return c.fallback
}

func (c cors) apply(w http.ResponseWriter, r *http.Request, methods string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", c.allowOrigin(r.Header.Get("Origin")))
	h.Set("Access-Control-Allow-Methods", methods)
	h.Set("Access-Control-Allow-Headers", allowedHeaders)
	h.Add("Vary", "Origin")
}

func (s *Server) handlePreflight(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.cors.apply(w, r, methods)
		w.WriteHeader(http.StatusOK)
	}
}
