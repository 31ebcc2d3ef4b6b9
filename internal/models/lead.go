// Package models defines the core data structures for LeadPipe.
//
// It includes the persisted lead record, the extraction patch produced by the
// field extractor, and the conversation history types shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// LeadStatus is the sales status of a lead.
type LeadStatus string

const (
	// LeadStatusNew is the initial status assigned when a record is created.
	LeadStatusNew LeadStatus = "New"
	// LeadStatusInterested marks a lead that asked about price or details.
	LeadStatusInterested LeadStatus = "Interested"
	// LeadStatusNotInterested marks a lead that declined or asked to stop.
	LeadStatusNotInterested LeadStatus = "Not Interested"
	// LeadStatusClosed marks a completed sale.
	LeadStatusClosed LeadStatus = "Closed"
)

// IsValidLeadStatus checks if the given status value is supported.
func IsValidLeadStatus(s LeadStatus) bool {
	switch s {
	case LeadStatusNew, LeadStatusInterested, LeadStatusNotInterested, LeadStatusClosed:
		return true
	default:
		return false
	}
}

// ParseLeadStatus maps free-form extractor output onto a LeadStatus.
// Returns an empty status and false when the value is not recognized.
func ParseLeadStatus(raw string) (LeadStatus, bool) {
	normalized := strings.TrimSpace(raw)
	switch strings.ToLower(normalized) {
	case "new":
		return LeadStatusNew, true
	case "interested":
		return LeadStatusInterested, true
	case "not interested", "notinterested", "not_interested":
		return LeadStatusNotInterested, true
	case "closed":
		return LeadStatusClosed, true
	default:
		return "", false
	}
}

// ServiceSeparator joins accumulated service interests in a lead record.
const ServiceSeparator = ", "

// ErrEmptyParticipantID rejects records and messages without a participant.
var ErrEmptyParticipantID = errors.New("participant ID cannot be empty")

// LeadRecord is the persisted state for one conversation participant.
// ParticipantID is the immutable primary key; all other fields are merged
// monotonically by the reconciler (a known value is never replaced by an
// empty extraction except on an explicit edit).
type LeadRecord struct {
	ParticipantID string     `json:"participant_id"`
	Name          string     `json:"name,omitempty"`
	Phone         string     `json:"phone,omitempty"` // opaque text, never numeric
	Service       string     `json:"service,omitempty"`
	Status        LeadStatus `json:"status"`
	LastContacted time.Time  `json:"last_contacted"`
	FollowupCount int        `json:"followup_count"`
	StopFollowup  bool       `json:"stop_followup"`
}

// Validate performs basic validation on a LeadRecord.
func (r *LeadRecord) Validate() error {
	if r.ParticipantID == "" {
		return ErrEmptyParticipantID
	}
	return nil
}

// HasRequiredFields reports whether both required contact fields are known.
// The conversation controller uses this to stop re-asking for them.
func (r *LeadRecord) HasRequiredFields() bool {
	return r.Name != "" && r.Phone != ""
}

// ServiceContains reports whether the accumulated service field already
// mentions the given service string (case-insensitive substring match).
func (r *LeadRecord) ServiceContains(service string) bool {
	if service == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Service), strings.ToLower(service))
}

// LeadPatch is the best-effort structured output of the field extractor for
// a single message. Empty string means "extractor found nothing" for that
// field; the extractor normalizes sentinel values like "unknown" and "N/A"
// to empty before the patch reaches the reconciler.
type LeadPatch struct {
	Name         string     `json:"name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Service      string     `json:"service,omitempty"`
	Status       LeadStatus `json:"status,omitempty"`
	StopFollowup bool       `json:"stop_followup,omitempty"`
	EditIntent   bool       `json:"edit_intent,omitempty"`
}

// IsEmpty reports whether the patch carries no extracted data at all.
// An edit-intent flag alone does not make a patch non-empty: there is
// nothing to merge without a replacement value.
func (p LeadPatch) IsEmpty() bool {
	return p.Name == "" && p.Phone == "" && p.Service == "" &&
		p.Status == "" && !p.StopFollowup
}

// ConversationMessage is one turn of participant/bot dialogue.
type ConversationMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the stored dialogue history for one participant, used to
// give the reply generator context across turns and process restarts.
type Conversation struct {
	ParticipantID string                `json:"participant_id"`
	Messages      []ConversationMessage `json:"messages"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}
