// Package llm calls a multimodal model to transcribe and grade scanned
// answer sheets against a question paper and answer key.
package llm

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/akshayhegde/gradescan/internal/llm/prompts"
	"github.com/akshayhegde/gradescan/internal/model"
)

//go:embed response_schema.json
var responseSchemaJSON string

// ErrBadResponse marks a model reply that is not valid JSON or does not
// conform to the declared result shape. The caller can retry the
// evaluation; nothing is stored.
var ErrBadResponse = errors.New("unusable evaluation response")

var (
	schemaOnce sync.Once
	schemaErr  error
	respSchema *jsonschema.Schema
)

func responseSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("evaluation.json", strings.NewReader(responseSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add response schema: %w", err)
			return
		}
		respSchema, schemaErr = compiler.Compile("evaluation.json")
	})
	return respSchema, schemaErr
}

// Client wraps an OpenAI-compatible multimodal API.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a new evaluator client.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("invalid prompt variant: %q", variant)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.Variant(variant),
	}, nil
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// EvaluateSheet sends the question paper, answer key, and one student's
// answer sheet to the model and returns the graded result. The result
// carries no student identity or exam context; the caller enriches it
// before saving.
func (c *Client) EvaluateSheet(ctx context.Context, questionPaper, answerKey, studentSheet model.Attachment, info prompts.Data) (*model.ExamResult, error) {
	prompt, err := prompts.Build(c.variant, info)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	for _, att := range []model.Attachment{questionPaper, answerKey, studentSheet} {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(att),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	result, err := ParseEvaluation([]byte(raw))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ParseEvaluation validates a raw model reply against the declared
// result shape and decodes it. Shape violations (missing totals, an
// unknown status value) fail here rather than producing a record with
// silently wrong fields.
func ParseEvaluation(raw []byte) (*model.ExamResult, error) {
	schema, err := responseSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	var result model.ExamResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &result, nil
}

func dataURL(att model.Attachment) string {
	mime := att.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + att.Base64
}
