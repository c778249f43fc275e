package asset

import (
	"testing"
	"time"
)

func TestVisible(t *testing.T) {
	tests := []struct {
		name     string
		state    ProcessingState
		approved bool
		want     bool
	}{
		{"ready and approved", ProcessingReady, true, true},
		{"ready but not approved", ProcessingReady, false, false},
		{"approved but still processing", Processing, true, false},
		{"approved but queued", ProcessingQueued, true, false},
		{"approved but failed", ProcessingFailed, true, false},
		{"approved but timed out", ProcessingTimedOut, true, false},
		{"neither", Processing, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &VideoAsset{ProcessingState: tt.state, Approved: tt.approved}
			if got := a.Visible(); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	terminal := []ProcessingState{ProcessingReady, ProcessingFailed, ProcessingTimedOut}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	for _, s := range []ProcessingState{ProcessingQueued, Processing} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "music", []string{"music"}},
		{"multiple", "music;live;concert", []string{"music", "live", "concert"}},
		{"whitespace trimmed", " music ; live ", []string{"music", "live"}},
		{"empty segments dropped", "music;;live;", []string{"music", "live"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &VideoAsset{Metadata: map[string]string{KeyCategories: tt.raw}}
			got := a.Categories()

			if len(got) != len(tt.want) {
				t.Fatalf("Categories() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Categories()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestJoinCategoriesRoundTrip(t *testing.T) {
	cats := []string{"music", "live"}
	a := &VideoAsset{Metadata: map[string]string{KeyCategories: JoinCategories(cats)}}

	got := a.Categories()
	if len(got) != 2 || got[0] != "music" || got[1] != "live" {
		t.Errorf("round trip = %v, want %v", got, cats)
	}
}

func TestUploadedAt(t *testing.T) {
	stamp := "2026-03-14T09:30:00Z"
	a := &VideoAsset{Metadata: map[string]string{KeyUploadDate: stamp}}

	want, _ := time.Parse(time.RFC3339, stamp)
	if got := a.UploadedAt(); !got.Equal(want) {
		t.Errorf("UploadedAt() = %v, want %v", got, want)
	}

	a = &VideoAsset{Metadata: map[string]string{KeyUploadDate: "yesterday"}}
	if got := a.UploadedAt(); !got.IsZero() {
		t.Errorf("UploadedAt() with malformed stamp = %v, want zero", got)
	}
}

func TestApprovedValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"True", false},
		{"1", false},
		{"", false},
	}

	for _, tt := range tests {
		meta := map[string]string{KeyIsApproved: tt.value}
		if got := ApprovedValue(meta); got != tt.want {
			t.Errorf("ApprovedValue(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	if ApprovedValue(nil) {
		t.Error("ApprovedValue(nil) = true, want false")
	}
}
