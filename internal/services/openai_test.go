package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatCompleter struct {
	content  string
	err      error
	delay    time.Duration
	noChoice bool
	last     openai.ChatCompletionRequest
}

func (s *stubChatCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.last = request
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	if s.noChoice {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

// TestCleanJSONResponse tests the JSON cleaning functionality
func TestCleanJSONResponse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Clean JSON",
			input:    `{"events": []}`,
			expected: `{"events": []}`,
		},
		{
			name:     "JSON with markdown code blocks",
			input:    "```json\n{\"events\": []}\n```",
			expected: `{"events": []}`,
		},
		{
			name:     "JSON with just backticks",
			input:    "```\n{\"events\": []}\n```",
			expected: `{"events": []}`,
		},
		{
			name:     "JSON with extra whitespace",
			input:    "  \n  {\"events\": []}  \n  ",
			expected: `{"events": []}`,
		},
		{
			name:     "Plain text response",
			input:    "I'm unable to extract structured data from the provided content.",
			expected: "I'm unable to extract structured data from the provided content.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanJSONResponse(tc.input))
		})
	}
}

func TestDecodeListResponse(t *testing.T) {
	testCases := []struct {
		name        string
		response    string
		expectCount int
		expectError bool
	}{
		{"bare array", `[{"name":"A"},{"name":"B"}]`, 2, false},
		{"events key", `{"events":[{"name":"A"}]}`, 1, false},
		{"data key", `{"data":[{"name":"A"}]}`, 1, false},
		{"repairable", `{"events":[{"name":"A",}`, 1, false},
		{"no list", `{"message":"none"}`, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var events []ScrapedEvent
			err := decodeListResponse(tc.response, []string{"events", "data"}, &events)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, events, tc.expectCount)
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	stub := &stubChatCompleter{content: `{"concepts":[]}`}
	client := NewOpenAIClientWithCompleter(stub, "gpt-4o", nil)

	content, err := client.Complete(context.Background(), CompletionRequest{
		System:      "system",
		Prompt:      "prompt",
		Temperature: 0.7,
		MaxTokens:   2500,
		JSONMode:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"concepts":[]}`, content)

	assert.Equal(t, "gpt-4o", stub.last.Model)
	assert.Equal(t, 2500, stub.last.MaxTokens)
	require.Len(t, stub.last.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.last.Messages[0].Role)
	assert.Equal(t, "prompt", stub.last.Messages[1].Content)
	require.NotNil(t, stub.last.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, stub.last.ResponseFormat.Type)

	_, err = client.Complete(context.Background(), CompletionRequest{Model: "gpt-4-turbo", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo", stub.last.Model)
	assert.Nil(t, stub.last.ResponseFormat)
}

func TestOpenAIClient_CompleteErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		client := NewOpenAIClientWithCompleter(&stubChatCompleter{err: errors.New("rate limited")}, "gpt-4o", nil)
		_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("no choices", func(t *testing.T) {
		client := NewOpenAIClientWithCompleter(&stubChatCompleter{noChoice: true}, "gpt-4o", nil)
		_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "p"})
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		client := NewOpenAIClientWithCompleter(&stubChatCompleter{content: "{}", delay: time.Second}, "gpt-4o", nil)
		_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "p", Timeout: 20 * time.Millisecond})
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestOpenAIClient_ExtractEvents(t *testing.T) {
	page := strings.Repeat("Community calendar with weekly meetups and workshops. ", 5)

	t.Run("short content is skipped", func(t *testing.T) {
		stub := &stubChatCompleter{content: `{"events":[{"name":"x"}]}`}
		client := NewOpenAIClientWithCompleter(stub, "gpt-4o", nil)
		events, err := client.ExtractEvents(context.Background(), "too short", "https://example.org", "Austin")
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.Empty(t, stub.last.Messages)
	})

	t.Run("events decoded", func(t *testing.T) {
		stub := &stubChatCompleter{content: "```json\n{\"events\":[{\"name\":\"Board Game Night\",\"date\":\"Every Thursday\",\"recurring\":true,\"cost\":\"Free\"}]}\n```"}
		client := NewOpenAIClientWithCompleter(stub, "gpt-4o", nil)
		events, err := client.ExtractEvents(context.Background(), page, "https://example.org/calendar", "Austin")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Board Game Night", events[0].Name)
		assert.True(t, events[0].Recurring)
		assert.Contains(t, stub.last.Messages[1].Content, "Source URL: https://example.org/calendar")
		assert.InDelta(t, 0.3, stub.last.Temperature, 0.001)
	})

	t.Run("long content is truncated", func(t *testing.T) {
		stub := &stubChatCompleter{content: `{"events":[]}`}
		client := NewOpenAIClientWithCompleter(stub, "gpt-4o", nil)
		_, err := client.ExtractEvents(context.Background(), strings.Repeat("a", 9000), "https://example.org", "Austin")
		require.NoError(t, err)
		assert.NotContains(t, stub.last.Messages[1].Content, strings.Repeat("a", 8001))
		assert.Contains(t, stub.last.Messages[1].Content, strings.Repeat("a", 8000))
	})
}
