// Package workflow drives the multi-phase scan sequence: select an image,
// upload it through the gateway, surface the verdict, and recover from
// failure. One workflow instance owns exactly one live attempt at a time.
package workflow

import (
	"github.com/google/uuid"

	"github.com/vegscan/vegscan/internal/api"
)

// Phase is the state of the current scan attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseImageSelected
	PhaseSubmitting
	PhaseAnalyzing
	PhaseSucceeded
	PhaseFailed
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	names := [...]string{
		"idle", "image-selected", "submitting", "analyzing", "succeeded", "failed",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// Terminal reports whether the attempt has finished, successfully or not.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// SelectedImage is the raw upload candidate plus its local metadata.
type SelectedImage struct {
	Name        string
	ContentType string
	Data        []byte
}

// Attempt is one user-initiated image-to-verdict cycle. It is ephemeral:
// starting a new attempt discards it, though history already persisted
// server-side is unaffected.
type Attempt struct {
	// ID keys the stale-response guard: any callback carrying an ID that no
	// longer matches the live attempt is a no-op.
	ID uuid.UUID

	Image    *SelectedImage
	Phase    Phase
	Progress int // 0..100, synthetic until completion
	Result   *api.ScanResult
	ErrorMsg string
}

// User-facing failure messages.
const (
	// MsgInvalidImage is shown when the backend explicitly rejected the
	// upload as not a usable vegetable photo.
	MsgInvalidImage = "Invalid image. Please upload a clear photo of a vegetable."

	// MsgAnalysisFailed is shown for every other failure.
	MsgAnalysisFailed = "Analysis failed. Please try again."
)
