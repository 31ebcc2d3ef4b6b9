// Package reconcile merges extracted lead details into stored lead records.
//
// The merge is monotonic: an absent field in a patch never erases a stored
// value, and a populated field only replaces a stored value when the stored
// value is empty or the participant signalled a correction. Service interests
// accumulate instead of replacing each other.
package reconcile

import (
	"strings"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// Merge applies patch to existing and returns the record to persist.
// existing may be nil, in which case a fresh record for participantID is
// created with defaults; the first inbound message always produces a record
// even when nothing was extracted from it.
//
// Every inbound message counts as fresh contact: the returned record always
// has LastContacted set to now and FollowupCount reset to zero.
func Merge(participantID string, existing *models.LeadRecord, patch models.LeadPatch, now time.Time) models.LeadRecord {
	var rec models.LeadRecord
	if existing == nil {
		rec = models.LeadRecord{
			ParticipantID: participantID,
			Status:        models.LeadStatusNew,
		}
	} else {
		rec = *existing
	}

	applyScalar(&rec.Name, strings.TrimSpace(patch.Name), patch.EditIntent)
	applyScalar(&rec.Phone, NormalizePhone(patch.Phone), patch.EditIntent)
	applyService(&rec.Service, strings.TrimSpace(patch.Service), patch.EditIntent)

	if patch.Status != "" && models.IsValidLeadStatus(patch.Status) {
		rec.Status = patch.Status
	}

	if patch.StopFollowup {
		rec.StopFollowup = true
	}
	// An opted-out lead is always recorded as not interested, whatever the
	// extractor proposed for status in the same turn.
	if rec.StopFollowup {
		rec.Status = models.LeadStatusNotInterested
	}

	rec.LastContacted = now
	rec.FollowupCount = 0
	return rec
}

// applyScalar writes value into dst when dst is empty or the participant is
// correcting an earlier answer.
func applyScalar(dst *string, value string, editIntent bool) {
	if value == "" {
		return
	}
	if *dst != "" && !editIntent {
		return
	}
	*dst = value
}

// applyService accumulates a newly mentioned service onto the stored list.
// A service already present (case-insensitive substring match) is not added
// again. A correction replaces the list outright.
func applyService(dst *string, value string, editIntent bool) {
	if value == "" {
		return
	}
	if editIntent {
		*dst = value
		return
	}
	if *dst == "" {
		*dst = value
		return
	}
	if containsService(*dst, value) {
		return
	}
	*dst = *dst + models.ServiceSeparator + value
}

func containsService(list, service string) bool {
	return strings.Contains(strings.ToLower(list), strings.ToLower(service))
}
