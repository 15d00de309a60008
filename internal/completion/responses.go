package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/ent0n29/studychat/internal/study"
)

// ResponsesClient calls the OpenAI Responses API. The system prompt goes in
// Instructions and the conversation becomes the input item list.
type ResponsesClient struct {
	client      *openai.Client
	model       string
	temperature float64
}

func NewResponsesClient(cfg Config) (*ResponsesClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OpenAI API key is required for responses mode")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	client := openai.NewClient(opts...)
	return &ResponsesClient{
		client:      &client,
		model:       model,
		temperature: float64(cfg.Temperature),
	}, nil
}

func (c *ResponsesClient) Provider() string { return ModeResponses }

func (c *ResponsesClient) Complete(ctx context.Context, req Request) (string, error) {
	params := responses.ResponseNewParams{
		Model:       c.model,
		Temperature: openai.Float(c.temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems(req.Messages),
		},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("responses completion: %w", err)
	}
	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func inputItems(msgs []study.Message) []responses.ResponseInputItemUnionParam {
	out := make([]responses.ResponseInputItemUnionParam, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, responses.ResponseInputItemParamOfMessage(m.Content, easyRole(m.Role)))
	}
	return out
}

func easyRole(r study.Role) responses.EasyInputMessageRole {
	switch r {
	case study.RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	case study.RoleSystem:
		return responses.EasyInputMessageRoleSystem
	default:
		return responses.EasyInputMessageRoleUser
	}
}
