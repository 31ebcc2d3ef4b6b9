package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

func TestMemoryPauseRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryPauseRegistry()

	paused, err := reg.IsPaused(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paused {
		t.Fatal("fresh registry must not report paused")
	}

	if err := reg.Pause(ctx, "p1", time.Hour); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused, _ := reg.IsPaused(ctx, "p1"); !paused {
		t.Error("expected participant to be paused")
	}
	if paused, _ := reg.IsPaused(ctx, "p2"); paused {
		t.Error("pause must be scoped to one participant")
	}

	if err := reg.Resume(ctx, "p1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if paused, _ := reg.IsPaused(ctx, "p1"); paused {
		t.Error("expected resume to clear the window")
	}
}

func TestMemoryPauseRegistryExpiry(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryPauseRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.nowFunc = func() time.Time { return now }

	if err := reg.Pause(ctx, "p1", 30*time.Minute); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused, _ := reg.IsPaused(ctx, "p1"); !paused {
		t.Fatal("expected participant to be paused inside the window")
	}

	now = now.Add(31 * time.Minute)
	if paused, _ := reg.IsPaused(ctx, "p1"); paused {
		t.Error("expected window to expire lazily")
	}

	reg.mu.RLock()
	_, present := reg.expiry["p1"]
	reg.mu.RUnlock()
	if present {
		t.Error("expected expired entry to be removed on read")
	}
}

func TestBuildDirectivePriority(t *testing.T) {
	tests := []struct {
		name   string
		record models.LeadRecord
		patch  models.LeadPatch
		want   DirectiveKind
		field  string
	}{
		{
			name:   "opt out wins over everything",
			record: models.LeadRecord{StopFollowup: true},
			patch:  models.LeadPatch{Name: "Aye", EditIntent: true},
			want:   DirectiveRespectOptOut,
		},
		{
			name:   "correction confirmation",
			record: models.LeadRecord{Name: "Aye", Phone: "09123456"},
			patch:  models.LeadPatch{Phone: "09999999", EditIntent: true},
			want:   DirectiveConfirmCorrection,
		},
		{
			name:   "edit intent without data falls through",
			record: models.LeadRecord{Name: "Aye", Phone: "09123456"},
			patch:  models.LeadPatch{EditIntent: true},
			want:   DirectiveAcknowledge,
		},
		{
			name:   "missing name asked first",
			record: models.LeadRecord{Phone: "09123456"},
			want:   DirectiveAskField,
			field:  "name",
		},
		{
			name:   "missing phone asked second",
			record: models.LeadRecord{Name: "Aye"},
			want:   DirectiveAskField,
			field:  "phone",
		},
		{
			name:   "complete record acknowledges",
			record: models.LeadRecord{Name: "Aye", Phone: "09123456"},
			want:   DirectiveAcknowledge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := BuildDirective(tt.record, tt.patch)
			if d.Kind != tt.want {
				t.Errorf("kind = %q, want %q", d.Kind, tt.want)
			}
			if d.Field != tt.field {
				t.Errorf("field = %q, want %q", d.Field, tt.field)
			}
		})
	}
}

func TestDirectiveInstruction(t *testing.T) {
	d := Directive{Kind: DirectiveAskField, Field: "phone"}
	if got := d.Instruction(); !strings.Contains(got, "phone") {
		t.Errorf("instruction does not mention the missing field: %q", got)
	}
	if got := ConservativeDirective().Instruction(); strings.Contains(got, "Ask for it") {
		t.Errorf("conservative directive must not demand a specific field: %q", got)
	}
}

func TestConservativeDirectiveAsksPolitely(t *testing.T) {
	d := ConservativeDirective()
	if d.Kind != DirectiveAskPolitely {
		t.Errorf("kind = %q, want %q", d.Kind, DirectiveAskPolitely)
	}
	got := d.Instruction()
	if !strings.Contains(got, "politely invite") {
		t.Errorf("instruction must invite missing details politely: %q", got)
	}
	if !strings.Contains(got, "do not claim any details are already on file") {
		t.Errorf("instruction must not assert stored state: %q", got)
	}
}
