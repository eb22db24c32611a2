package workflow

import "github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"

// ConfirmTicks is the number of one-second ticks the voter has to confirm
// a selection.
const ConfirmTicks = 30

type Mode string

const (
	ModeCamera Mode = "camera"
	ModeUpload Mode = "upload"
)

// Step is the current workflow state. Exactly one of the types below.
type Step interface {
	Name() string
	isStep()
}

// Capture waits for an identity-card image. CameraReady is set while a
// video stream is held.
type Capture struct {
	Mode        Mode
	CameraReady bool
}

type Verifying struct {
	Mode  Mode
	Image model.Image
}

// Select waits for the verified voter to pick an option.
type Select struct {
	Voter model.VerificationResult
}

// Countdown waits for confirmation of Choice. Casting is set while the
// vote-cast request is in flight; the timer does not tick meanwhile.
type Countdown struct {
	Voter     model.VerificationResult
	Choice    model.Option
	Remaining int
	Casting   bool
}

type Success struct {
	Voter  model.VerificationResult
	Choice model.Option
	Tally  model.VoteTally
}

func (Capture) Name() string   { return "capture" }
func (Verifying) Name() string { return "verifying" }
func (Select) Name() string    { return "select" }
func (Countdown) Name() string { return "countdown" }
func (Success) Name() string   { return "success" }

func (Capture) isStep()   {}
func (Verifying) isStep() {}
func (Select) isStep()    {}
func (Countdown) isStep() {}
func (Success) isStep()   {}
