package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// fakeChat is a stub chat completion service for testing.
type fakeChat struct {
	resp *openai.ChatCompletion
	err  error

	gotParams openai.ChatCompletionNewParams
}

func (f *fakeChat) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.gotParams = body
	return f.resp, f.err
}

func completionWithContent(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGenerateWithMessages(t *testing.T) {
	fake := &fakeChat{resp: completionWithContent("hello there")}
	c := &Client{chat: fake, model: DefaultModel}

	out, err := c.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("system"),
		openai.UserMessage("hi"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello there" {
		t.Errorf("expected %q, got %q", "hello there", out)
	}
	if len(fake.gotParams.Messages) != 2 {
		t.Errorf("expected 2 messages passed through, got %d", len(fake.gotParams.Messages))
	}
}

func TestGenerateWithMessagesError(t *testing.T) {
	fake := &fakeChat{err: errors.New("rate limited")}
	c := &Client{chat: fake, model: DefaultModel}

	if _, err := c.GenerateWithMessages(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateWithMessagesNoChoices(t *testing.T) {
	fake := &fakeChat{resp: &openai.ChatCompletion{}}
	c := &Client{chat: fake, model: DefaultModel}

	if _, err := c.GenerateWithMessages(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestGenerateWithTools(t *testing.T) {
	resp := completionWithContent("")
	resp.Choices[0].Message.ToolCalls = []openai.ChatCompletionMessageToolCall{
		{
			ID: "call_1",
			Function: openai.ChatCompletionMessageToolCallFunction{
				Name:      "record_lead_details",
				Arguments: `{"name":"Aye"}`,
			},
		},
	}
	fake := &fakeChat{resp: resp}
	c := &Client{chat: fake, model: DefaultModel}

	tools := []openai.ChatCompletionToolParam{{}}
	out, err := c.GenerateWithTools(context.Background(), nil, tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(out.ToolCalls))
	}
	if out.ToolCalls[0].Function.Name != "record_lead_details" {
		t.Errorf("unexpected tool name %q", out.ToolCalls[0].Function.Name)
	}
	if len(fake.gotParams.Tools) != 1 {
		t.Errorf("expected tools passed through, got %d", len(fake.gotParams.Tools))
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error when no API key configured")
	}
	if _, err := NewClient(WithAPIKey("sk-test")); err != nil {
		t.Fatalf("unexpected error with explicit key: %v", err)
	}
}
