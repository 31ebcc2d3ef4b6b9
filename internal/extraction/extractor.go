package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/worksmart-ai/leadpipe/internal/genai"
	"github.com/worksmart-ai/leadpipe/internal/models"
)

// ToolNameRecordLead is the function name the model uses to hand back
// structured lead fields.
const ToolNameRecordLead = "record_lead_details"

// extractionSystemPrompt instructs the model to act purely as a field
// extractor. The conversational persona lives in the flow package; this
// prompt must never produce user-visible text.
const extractionSystemPrompt = `You analyze one customer message from a sales chat for 'Work Smart with AI', a business selling AI training courses and chatbot services.

Call the record_lead_details function with any of these fields you can identify in the message:
- name: the customer's own name (not the business's name)
- phone: the customer's phone number, exactly as written, keeping any leading zeros or + prefix
- service: which offering they are interested in (AI Sales Content Creation, Auto Bot Service, Social Media Design Class, AI Agent Training)
- status: "New", "Interested", "Not Interested", or "Closed" based on the tone of the message
- stop_followup: true only if they clearly decline or ask not to be contacted
- edit_intent: true only if they are correcting information they gave earlier

Omit any field that is not clearly present. Never guess. If the message contains no lead information, do not call the function.`

// Extractor derives a structured lead patch from a single inbound message
// using the GenAI client, with keyword intent detection as a pre-pass.
type Extractor struct {
	genaiClient genai.ClientInterface
}

// NewExtractor creates a new field extractor.
func NewExtractor(genaiClient genai.ClientInterface) *Extractor {
	slog.Debug("Extractor.NewExtractor: creating field extractor", "hasGenAIClient", genaiClient != nil)
	return &Extractor{genaiClient: genaiClient}
}

// ToolDefinition returns the OpenAI tool definition for recording lead fields.
func ToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        ToolNameRecordLead,
			Description: openai.String("Record structured lead details identified in the customer's message. Only include fields that are clearly present."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "The customer's name as they stated it",
					},
					"phone": map[string]interface{}{
						"type":        "string",
						"description": "The customer's phone number exactly as written, including leading zeros or country prefix",
					},
					"service": map[string]interface{}{
						"type":        "string",
						"description": "The offering the customer expressed interest in",
					},
					"status": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"New", "Interested", "Not Interested", "Closed"},
						"description": "Sales status implied by the message",
					},
					"stop_followup": map[string]interface{}{
						"type":        "boolean",
						"description": "True only when the customer declines or asks not to be contacted",
					},
					"edit_intent": map[string]interface{}{
						"type":        "boolean",
						"description": "True only when the customer is correcting previously given information",
					},
				},
			},
		},
	}
}

// Extract derives a lead patch from the message. Malformed model output is
// treated as "no fields extracted" and returns an empty patch; only a
// transport-level failure of the GenAI client is reported as an error, and
// even then the returned patch still carries the keyword-detected intents
// so the caller can degrade gracefully.
func (e *Extractor) Extract(ctx context.Context, message string) (models.LeadPatch, error) {
	patch := models.LeadPatch{
		EditIntent:   DetectEditIntent(message),
		StopFollowup: DetectStopIntent(message),
	}

	if e.genaiClient == nil {
		return patch, fmt.Errorf("genai client not initialized")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(extractionSystemPrompt),
		openai.UserMessage(message),
	}
	tools := []openai.ChatCompletionToolParam{ToolDefinition()}

	resp, err := e.genaiClient.GenerateWithTools(ctx, messages, tools)
	if err != nil {
		slog.Error("Extractor.Extract: generation failed", "error", err)
		return patch, fmt.Errorf("extraction generation failed: %w", err)
	}

	for _, toolCall := range resp.ToolCalls {
		if toolCall.Function.Name != ToolNameRecordLead {
			slog.Debug("Extractor.Extract: ignoring unexpected tool call", "toolName", toolCall.Function.Name)
			continue
		}
		extracted, ok := ParseToolArguments(toolCall.Function.Arguments)
		if !ok {
			continue
		}
		patch = combinePatches(patch, extracted)
	}

	// Legacy contract: some prompts embed the payload in the text instead
	// of calling the tool.
	if embedded, ok := ParseDataPayload(resp.Content); ok {
		patch = combinePatches(patch, embedded)
	}

	slog.Debug("Extractor.Extract: extraction complete",
		"hasName", patch.Name != "",
		"hasPhone", patch.Phone != "",
		"hasService", patch.Service != "",
		"status", patch.Status,
		"editIntent", patch.EditIntent,
		"stopFollowup", patch.StopFollowup)
	return patch, nil
}

// combinePatches overlays b's present fields onto a. Boolean intents are
// OR-ed so a keyword detection is never lost.
func combinePatches(a, b models.LeadPatch) models.LeadPatch {
	if b.Name != "" {
		a.Name = b.Name
	}
	if b.Phone != "" {
		a.Phone = b.Phone
	}
	if b.Service != "" {
		a.Service = b.Service
	}
	if b.Status != "" {
		a.Status = b.Status
	}
	a.StopFollowup = a.StopFollowup || b.StopFollowup
	a.EditIntent = a.EditIntent || b.EditIntent
	return a
}
