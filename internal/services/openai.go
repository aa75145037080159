package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"

	"social-activity-recommender/internal/logging"
)

// ChatCompleter is the part of *openai.Client the service uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient wraps chat completions with a raced timeout and JSON cleanup
type OpenAIClient struct {
	client ChatCompleter
	model  string
	logger *logging.Logger
}

// OpenAIConfig configures a client; BaseURL is only set by tests
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// CompletionRequest is one chat completion call
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
	Timeout     time.Duration
}

// NewOpenAIClient creates a client for model
func NewOpenAIClient(apiKey, model string, logger *logging.Logger) *OpenAIClient {
	return NewOpenAIClientWithConfig(OpenAIConfig{APIKey: apiKey, Model: model}, logger)
}

// NewOpenAIClientWithConfig creates a client from cfg
func NewOpenAIClientWithConfig(cfg OpenAIConfig, logger *logging.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return NewOpenAIClientWithCompleter(openai.NewClientWithConfig(clientConfig), cfg.Model, logger)
}

// NewOpenAIClientWithCompleter wraps an existing completer
func NewOpenAIClientWithCompleter(client ChatCompleter, model string, logger *logging.Logger) *OpenAIClient {
	return &OpenAIClient{
		client: client,
		model:  model,
		logger: logging.OrNop(logger),
	}
}

// GetModel returns the default model
func (o *OpenAIClient) GetModel() string {
	return o.model
}

// SetModel sets the default model
func (o *OpenAIClient) SetModel(model string) {
	o.model = model
}

// Complete sends one system+user exchange and returns the first choice. When
// req.Timeout is set the call is raced against it and a timeout is reported
// as an error.
func (o *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	request := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	call := func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return o.client.CreateChatCompletion(ctx, request)
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	if req.Timeout > 0 {
		resp, err = raceTimeout(ctx, req.Timeout, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}

	o.logger.Debug("[OPENAI] completion finished", "model", model, "tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

const extractionSystemPrompt = "You are an expert at extracting structured event data from web content. Return only valid JSON."

const extractionInstructions = `Extract all events, clubs, classes, workshops, leagues, or meetups from this page.
Focus on activities people can join or attend. Include:
- One-time events (workshops, concerts, special events, tournaments)
- Recurring activities (clubs, classes, regular meetups, leagues)
- Organizations that host activities

For each activity, extract: name, description, date, time, location, registration/website URL, whether it's recurring, and cost.
If information is not available, use "TBD" for dates/times and "See website" for cost.

Return a JSON object of this exact shape:
{"events": [{"name": "", "description": "", "date": "Oct 7 or Every Saturday or TBD", "time": "", "location": "", "url": "", "recurring": false, "cost": ""}]}

Only extract actual events (not navigation, headers, footers).`

// ExtractEvents asks the model for the event listings on a scraped page.
// Pages with under 100 characters of content are skipped and long pages are
// cut to 8000 characters.
func (o *OpenAIClient) ExtractEvents(ctx context.Context, content, pageURL, city string) ([]ScrapedEvent, error) {
	content = strings.TrimSpace(content)
	if len(content) < 100 {
		return nil, nil
	}
	if len(content) > 8000 {
		content = content[:8000]
	}

	prompt := fmt.Sprintf("%s\n\nWebpage content:\n%s\n\nSource URL: %s\nCity: %s", extractionInstructions, content, pageURL, city)
	response, err := o.Complete(ctx, CompletionRequest{
		System:      extractionSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   2000,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var events []ScrapedEvent
	if err := decodeListResponse(response, []string{"events", "data"}, &events); err != nil {
		return nil, fmt.Errorf("failed to parse extracted events: %w", err)
	}
	return events, nil
}

// cleanJSONResponse removes markdown code blocks and other formatting from OpenAI response
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// decodeLLMJSON unmarshals model output, repairing it first if it is not valid JSON
func decodeLLMJSON(response string, out interface{}) error {
	cleaned := cleanJSONResponse(response)
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("failed to repair JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("failed to decode repaired JSON: %w", err)
	}
	return nil
}

// decodeListResponse accepts a bare JSON array or an object holding the array
// under one of keys, and decodes the array into out.
func decodeListResponse(response string, keys []string, out interface{}) error {
	var raw interface{}
	if err := decodeLLMJSON(response, &raw); err != nil {
		return err
	}

	var list interface{}
	switch v := raw.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		for _, key := range keys {
			if items, ok := v[key].([]interface{}); ok {
				list = items
				break
			}
		}
	}
	if list == nil {
		return fmt.Errorf("response holds no list under %s", strings.Join(keys, "/"))
	}

	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
