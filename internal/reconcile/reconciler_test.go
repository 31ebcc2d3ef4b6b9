package reconcile

import (
	"testing"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

var mergeNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMergeCreatesRecord(t *testing.T) {
	patch := models.LeadPatch{Name: "Aye", Phone: "09123456"}
	rec := Merge("p1", nil, patch, mergeNow)
	if rec.ParticipantID != "p1" {
		t.Errorf("participant id = %q", rec.ParticipantID)
	}
	if rec.Name != "Aye" || rec.Phone != "09123456" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Status != models.LeadStatusNew {
		t.Errorf("expected New status, got %q", rec.Status)
	}
	if !rec.LastContacted.Equal(mergeNow) || rec.FollowupCount != 0 {
		t.Errorf("expected contact timestamp reset, got %+v", rec)
	}
}

func TestMergeFirstContactWithoutDetails(t *testing.T) {
	// A plain greeting carrying no extractable fields still opens a record.
	rec := Merge("p1", nil, models.LeadPatch{}, mergeNow)
	if rec.ParticipantID != "p1" {
		t.Errorf("participant id = %q", rec.ParticipantID)
	}
	if rec.Status != models.LeadStatusNew {
		t.Errorf("status = %q, want New", rec.Status)
	}
	if !rec.LastContacted.Equal(mergeNow) {
		t.Errorf("LastContacted = %v, want %v", rec.LastContacted, mergeNow)
	}
}

func TestMergeEmptyPatchStampsContact(t *testing.T) {
	existing := models.LeadRecord{
		ParticipantID: "p1",
		Name:          "Aye",
		Status:        models.LeadStatusInterested,
		LastContacted: mergeNow.Add(-24 * time.Hour),
		FollowupCount: 2,
	}
	rec := Merge("p1", &existing, models.LeadPatch{}, mergeNow)
	if rec.Name != "Aye" || rec.Status != models.LeadStatusInterested {
		t.Errorf("fields mutated by an empty patch: %+v", rec)
	}
	if !rec.LastContacted.Equal(mergeNow) {
		t.Errorf("LastContacted = %v, want %v", rec.LastContacted, mergeNow)
	}
	if rec.FollowupCount != 0 {
		t.Errorf("FollowupCount = %d, want 0 after an inbound message", rec.FollowupCount)
	}
}

func TestMergeDoesNotOverwriteWithoutEditIntent(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", Name: "Aye", Phone: "09123456", Status: models.LeadStatusNew}
	patch := models.LeadPatch{Name: "Somebody Else", Phone: "09999999"}
	rec := Merge("p1", &existing, patch, mergeNow)
	if rec.Name != "Aye" || rec.Phone != "09123456" {
		t.Errorf("record overwritten: %+v", rec)
	}
}

func TestMergeEditIntentOverrides(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", Name: "Aye", Phone: "09123456", Status: models.LeadStatusNew}
	patch := models.LeadPatch{Phone: "09999999", EditIntent: true}
	rec := Merge("p1", &existing, patch, mergeNow)
	if rec.Phone != "09999999" {
		t.Errorf("phone not corrected: %+v", rec)
	}
	if rec.Name != "Aye" {
		t.Errorf("name must be untouched by a phone-only correction: %+v", rec)
	}
}

func TestMergeServiceAccumulates(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", Service: "Design Class", Status: models.LeadStatusNew}
	rec := Merge("p1", &existing, models.LeadPatch{Service: "Video Editing"}, mergeNow)
	if rec.Service != "Design Class, Video Editing" {
		t.Errorf("service = %q", rec.Service)
	}
}

func TestMergeServiceIdempotent(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", Service: "Design Class, Video Editing", Status: models.LeadStatusNew}
	rec := Merge("p1", &existing, models.LeadPatch{Service: "design class"}, mergeNow)
	if rec.Service != existing.Service {
		t.Errorf("service mutated: %q", rec.Service)
	}
}

func TestMergeServiceEditReplaces(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", Service: "Design Class", Status: models.LeadStatusNew}
	rec := Merge("p1", &existing, models.LeadPatch{Service: "Video Editing", EditIntent: true}, mergeNow)
	if rec.Service != "Video Editing" {
		t.Errorf("service = %q", rec.Service)
	}
}

func TestMergeStopFollowupForcesNotInterested(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", Name: "Aye", Status: models.LeadStatusInterested}
	rec := Merge("p1", &existing, models.LeadPatch{StopFollowup: true, Status: models.LeadStatusInterested}, mergeNow)
	if !rec.StopFollowup {
		t.Error("StopFollowup not set")
	}
	if rec.Status != models.LeadStatusNotInterested {
		t.Errorf("status = %q, want Not Interested", rec.Status)
	}
}

func TestMergeStopFollowupNeverUnset(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", StopFollowup: true, Status: models.LeadStatusNotInterested}
	rec := Merge("p1", &existing, models.LeadPatch{StopFollowup: false, Status: models.LeadStatusInterested}, mergeNow)
	if !rec.StopFollowup {
		t.Error("StopFollowup was unset")
	}
	if rec.Status != models.LeadStatusNotInterested {
		t.Errorf("opted-out lead regained status %q", rec.Status)
	}
}

func TestMergeInboundResetsFollowupState(t *testing.T) {
	earlier := mergeNow.Add(-72 * time.Hour)
	existing := models.LeadRecord{ParticipantID: "p1", Status: models.LeadStatusNew, LastContacted: earlier, FollowupCount: 3}
	rec := Merge("p1", &existing, models.LeadPatch{Name: "Aye"}, mergeNow)
	if !rec.LastContacted.Equal(mergeNow) {
		t.Errorf("LastContacted = %v, want %v", rec.LastContacted, mergeNow)
	}
	if rec.FollowupCount != 0 {
		t.Errorf("FollowupCount = %d, want 0", rec.FollowupCount)
	}
}

func TestMergeInvalidStatusIgnored(t *testing.T) {
	existing := models.LeadRecord{ParticipantID: "p1", Status: models.LeadStatusNew}
	rec := Merge("p1", &existing, models.LeadPatch{Status: "Maybe Later"}, mergeNow)
	if rec.Status != models.LeadStatusNew {
		t.Errorf("status = %q", rec.Status)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"  09123456 ": "09123456",
		"'09123456":   "09123456",
		"+959123456":  "+959123456",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlausiblePhone(t *testing.T) {
	if !PlausiblePhone("+959761234567") {
		t.Error("expected international Myanmar number to be plausible")
	}
	if PlausiblePhone("abc") {
		t.Error("expected non-numeric text to be implausible")
	}
}
