// Package flow implements the conversation controller for LeadPipe: each
// incoming message is run through field extraction, lead reconciliation and
// reply generation, with echo suppression and operator pause windows applied
// before anything else.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"

	"github.com/worksmart-ai/leadpipe/internal/conversation"
	"github.com/worksmart-ai/leadpipe/internal/extraction"
	"github.com/worksmart-ai/leadpipe/internal/genai"
	"github.com/worksmart-ai/leadpipe/internal/models"
	"github.com/worksmart-ai/leadpipe/internal/reconcile"
	"github.com/worksmart-ai/leadpipe/internal/store"
)

// DefaultHistoryLimit is how many conversation turns are kept per participant.
const DefaultHistoryLimit = 20

// LeadWriter queues reconciled lead records for persistence.
type LeadWriter interface {
	Enqueue(rec models.LeadRecord)
}

// Opts holds configuration options for the conversation flow.
type Opts struct {
	// PauseWindow is how long the bot stays silent after a human operator
	// message. Zero uses the conversation package default.
	PauseWindow time.Duration
	// HistoryLimit caps stored conversation turns per participant.
	HistoryLimit int
}

// Option modifies flow configuration.
type Option func(*Opts)

// WithPauseWindow sets the operator takeover pause window.
func WithPauseWindow(window time.Duration) Option {
	return func(o *Opts) { o.PauseWindow = window }
}

// WithHistoryLimit caps stored conversation turns per participant.
func WithHistoryLimit(limit int) Option {
	return func(o *Opts) { o.HistoryLimit = limit }
}

// ConversationFlow processes incoming participant messages end to end.
type ConversationFlow struct {
	store       store.Store
	extractor   *extraction.Extractor
	pauses      conversation.PauseStore
	genaiClient genai.ClientInterface
	writer      LeadWriter

	pauseWindow  time.Duration
	historyLimit int
	nowFunc      func() time.Time
}

// NewConversationFlow wires the controller together.
func NewConversationFlow(st store.Store, extractor *extraction.Extractor, pauses conversation.PauseStore, genaiClient genai.ClientInterface, writer LeadWriter, opts ...Option) *ConversationFlow {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PauseWindow <= 0 {
		cfg.PauseWindow = conversation.DefaultPauseWindow
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &ConversationFlow{
		store:        st,
		extractor:    extractor,
		pauses:       pauses,
		genaiClient:  genaiClient,
		writer:       writer,
		pauseWindow:  cfg.PauseWindow,
		historyLimit: cfg.HistoryLimit,
		nowFunc:      time.Now,
	}
}

// ProcessMessage handles one incoming message and returns the reply text.
// An empty reply with a nil error means stay silent: the message was an echo
// of the business's own send, or the participant is inside a pause window.
func (f *ConversationFlow) ProcessMessage(ctx context.Context, msg models.IncomingMessage) (string, error) {
	if msg.ParticipantID == "" {
		return "", models.ErrEmptyParticipantID
	}

	// An echo means a human operator (or this bot) sent from the business
	// account. Operator takeover opens a pause window; either way the bot
	// never replies to its own side of the conversation.
	if msg.Echo {
		if err := f.pauses.Pause(ctx, msg.ParticipantID, f.pauseWindow); err != nil {
			slog.Error("ConversationFlow.ProcessMessage: pause failed", "participantID", msg.ParticipantID, "error", err)
		} else {
			slog.Debug("ConversationFlow.ProcessMessage: echo opened pause window", "participantID", msg.ParticipantID, "window", f.pauseWindow)
		}
		return "", nil
	}

	paused, err := f.pauses.IsPaused(ctx, msg.ParticipantID)
	if err != nil {
		slog.Error("ConversationFlow.ProcessMessage: pause lookup failed", "participantID", msg.ParticipantID, "error", err)
		// Fail open: a broken pause registry must not silence every lead.
	}
	if paused {
		slog.Debug("ConversationFlow.ProcessMessage: participant paused, staying silent", "participantID", msg.ParticipantID)
		return "", nil
	}

	degraded := false

	existing, err := f.store.FindLead(ctx, msg.ParticipantID)
	if err != nil {
		slog.Error("ConversationFlow.ProcessMessage: lead lookup failed", "participantID", msg.ParticipantID, "error", err)
		degraded = true
		existing = nil
	}

	patch, err := f.extractor.Extract(ctx, msg.Body)
	if err != nil {
		slog.Error("ConversationFlow.ProcessMessage: extraction failed", "participantID", msg.ParticipantID, "error", err)
		degraded = true
	}

	// Phone plausibility is advisory only: the raw value is stored either
	// way, a bad extraction just gets flagged for the operator logs.
	if phone := reconcile.NormalizePhone(patch.Phone); phone != "" {
		if reconcile.PlausiblePhone(phone) {
			slog.Debug("ConversationFlow.ProcessMessage: phone captured", "participantID", msg.ParticipantID, "display", reconcile.FormatPhoneDisplay(phone))
		} else {
			slog.Warn("ConversationFlow.ProcessMessage: extracted phone fails plausibility check", "participantID", msg.ParticipantID, "phone", phone)
		}
	}

	// Every inbound message stamps the record (LastContacted, followup
	// reset), so every turn persists. A degraded turn skips persistence
	// because the merge base may be wrong; opt-outs are the exception,
	// those must never be dropped.
	record := reconcile.Merge(msg.ParticipantID, existing, patch, f.nowFunc())
	if !degraded || patch.StopFollowup {
		f.writer.Enqueue(record)
		slog.Debug("ConversationFlow.ProcessMessage: lead write queued", "participantID", msg.ParticipantID, "status", record.Status)
	}

	var directive conversation.Directive
	if degraded {
		// Without trustworthy state, fall back to a polite invitation that
		// neither insists nor asserts what is already on file.
		directive = conversation.ConservativeDirective()
	} else {
		directive = conversation.BuildDirective(record, patch)
	}

	reply, err := f.generateReply(ctx, msg, directive)
	if err != nil {
		slog.Error("ConversationFlow.ProcessMessage: reply generation failed", "participantID", msg.ParticipantID, "error", err)
		return FallbackReply, nil
	}

	f.saveHistory(ctx, msg, reply)
	return reply, nil
}

// generateReply builds the prompt from persona, directive and stored history
// and asks the model for the next turn.
func (f *ConversationFlow) generateReply(ctx context.Context, msg models.IncomingMessage, directive conversation.Directive) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(salesSystemPrompt),
		openai.SystemMessage(directive.Instruction()),
	}

	if conv, err := f.store.GetConversation(ctx, msg.ParticipantID); err != nil {
		slog.Error("ConversationFlow.generateReply: history lookup failed", "participantID", msg.ParticipantID, "error", err)
	} else if conv != nil {
		for _, turn := range conv.Messages {
			switch turn.Role {
			case "assistant":
				messages = append(messages, openai.AssistantMessage(turn.Content))
			default:
				messages = append(messages, openai.UserMessage(turn.Content))
			}
		}
	}
	messages = append(messages, openai.UserMessage(msg.Body))

	reply, err := f.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}

	// Models occasionally slip structured payloads into prose even when
	// told not to; never let one reach the participant.
	return extraction.StripDataPayload(reply), nil
}

// saveHistory appends the turn to stored history, trimming to the limit.
// Failures are logged and otherwise ignored; history is context, not truth.
func (f *ConversationFlow) saveHistory(ctx context.Context, msg models.IncomingMessage, reply string) {
	now := f.nowFunc()

	conv, err := f.store.GetConversation(ctx, msg.ParticipantID)
	if err != nil {
		slog.Error("ConversationFlow.saveHistory: history lookup failed", "participantID", msg.ParticipantID, "error", err)
		return
	}
	if conv == nil {
		conv = &models.Conversation{ParticipantID: msg.ParticipantID, CreatedAt: now}
	}

	conv.Messages = append(conv.Messages,
		models.ConversationMessage{Role: "user", Content: msg.Body, Timestamp: msg.Time},
		models.ConversationMessage{Role: "assistant", Content: reply, Timestamp: now},
	)
	if len(conv.Messages) > f.historyLimit {
		conv.Messages = conv.Messages[len(conv.Messages)-f.historyLimit:]
	}
	conv.UpdatedAt = now

	if err := f.store.SaveConversation(ctx, *conv); err != nil {
		slog.Error("ConversationFlow.saveHistory: save failed", "participantID", msg.ParticipantID, "error", err)
	}
}
