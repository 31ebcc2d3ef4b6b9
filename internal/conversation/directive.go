package conversation

import (
	"fmt"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// DirectiveKind identifies the conversational stance the generator should take
// for the current turn.
type DirectiveKind string

const (
	// DirectiveAcknowledge means all required fields are known; thank the
	// participant and answer their question without asking for anything.
	DirectiveAcknowledge DirectiveKind = "acknowledge"
	// DirectiveAskField means exactly one missing required field should be
	// asked for, at most once.
	DirectiveAskField DirectiveKind = "ask_field"
	// DirectiveConfirmCorrection means the participant just corrected a
	// detail and the reply should confirm the updated value.
	DirectiveConfirmCorrection DirectiveKind = "confirm_correction"
	// DirectiveRespectOptOut means the participant asked not to be
	// contacted; acknowledge briefly and offer nothing.
	DirectiveRespectOptOut DirectiveKind = "respect_opt_out"
	// DirectiveAskPolitely means record state is unknown this turn; invite
	// any missing details politely without claiming anything is on file.
	DirectiveAskPolitely DirectiveKind = "ask_politely"
)

// Directive tells the reply generator how to behave this turn. Field is only
// set for DirectiveAskField.
type Directive struct {
	Kind  DirectiveKind
	Field string
}

// BuildDirective decides the reply stance from the reconciled record and the
// patch extracted from the current message. Priority order: opt-out, then
// correction confirmation, then a single missing required field, then plain
// acknowledgement.
func BuildDirective(record models.LeadRecord, patch models.LeadPatch) Directive {
	if record.StopFollowup {
		return Directive{Kind: DirectiveRespectOptOut}
	}
	if patch.EditIntent && !patch.IsEmpty() {
		return Directive{Kind: DirectiveConfirmCorrection}
	}
	if !record.HasRequiredFields() {
		if record.Name == "" {
			return Directive{Kind: DirectiveAskField, Field: "name"}
		}
		return Directive{Kind: DirectiveAskField, Field: "phone"}
	}
	return Directive{Kind: DirectiveAcknowledge}
}

// ConservativeDirective is the fallback stance used when extraction or record
// lookup failed: ask for missing details politely, without insisting and
// without claiming anything is already on file.
func ConservativeDirective() Directive {
	return Directive{Kind: DirectiveAskPolitely}
}

// Instruction renders the directive as a system-prompt fragment for the
// reply generator.
func (d Directive) Instruction() string {
	switch d.Kind {
	case DirectiveRespectOptOut:
		return "The customer has asked not to be contacted. Acknowledge politely in one short sentence and do not promote anything or ask any questions."
	case DirectiveConfirmCorrection:
		return "The customer just corrected one of their details. Confirm the updated information naturally, then continue the conversation. Do not ask for details you already have."
	case DirectiveAskField:
		return fmt.Sprintf("You do not yet have the customer's %s. Ask for it once, naturally, as part of your reply. Do not ask for anything else and never re-ask for details already on file.", d.Field)
	case DirectiveAskPolitely:
		return "You are not certain which details the customer has already shared. If their name or phone number has not come up in this conversation, politely invite them to share it. Do not insist and do not claim any details are already on file."
	default:
		return "You already have the customer's contact details on file. Answer their question helpfully and do not ask for their name or phone number again."
	}
}
