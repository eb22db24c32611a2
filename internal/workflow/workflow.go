// Package workflow drives a voter from identity-card capture through
// verification and option selection to a confirmed vote.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/camera"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

type Verifier interface {
	VerifyNID(ctx context.Context, imageDataURL string) (model.VerificationResult, error)
	VerifyNIDUpload(ctx context.Context, img model.Image) (model.VerificationResult, error)
}

type Caster interface {
	CastVote(ctx context.Context, opt model.Option) (model.VoteTally, error)
}

type Config struct {
	Verifier Verifier
	Caster   Caster
	Camera   camera.Device
	Metrics  *metrics.ClientMetrics

	// OnNotice and OnChange are called without the workflow lock held,
	// possibly from the timer goroutine.
	OnNotice func(Notice)
	OnChange func(Step)

	TickInterval time.Duration
	// ManualTimer disables the internal ticker; the owner calls Tick.
	ManualTimer bool
}

type Workflow struct {
	cfg Config
	log *logrus.Entry

	mu        sync.Mutex
	step      Step
	gen       uint64 // bumped on Open and Close; late completions compare it
	timerGen  uint64 // bumped whenever the confirmation timer is armed or stopped
	stopTimer context.CancelFunc
	stream    camera.Stream
	pending   []Notice
	changed   bool

	acqSeq  uint64 // bumped whenever a camera acquisition starts or is abandoned
	acq     *acquisition
	stopAcq context.CancelFunc
}

// acquisition is a camera request queued under the lock and run by unlock
// once the lock is released.
type acquisition struct {
	ctx context.Context
	seq uint64
}

func New(cfg Config) *Workflow {
	if cfg.Camera == nil {
		cfg.Camera = camera.Unavailable{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Workflow{
		cfg:  cfg,
		log:  logging.Log.WithField("session", uuid.NewString()),
		step: Capture{Mode: ModeCamera},
	}
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Open starts a fresh session in camera capture mode.
func (w *Workflow) Open(ctx context.Context) {
	w.mu.Lock()
	defer w.unlock()

	w.gen++
	w.disarmTimer()
	w.enterCapture(ctx, ModeCamera)
}

// Close resets all session state and releases the camera. Results of
// requests still in flight are ignored.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.unlock()

	w.gen++
	w.disarmTimer()
	w.releaseStream()
	w.setStep(Capture{Mode: ModeCamera})
}

// SwitchMode toggles between camera and upload capture.
func (w *Workflow) SwitchMode(ctx context.Context) error {
	w.mu.Lock()
	defer w.unlock()

	c, ok := w.step.(Capture)
	if !ok {
		return ErrWrongStep
	}
	if c.Mode == ModeCamera {
		w.enterCapture(ctx, ModeUpload)
	} else {
		w.enterCapture(ctx, ModeCamera)
	}
	return nil
}

// CaptureFrame photographs the card with the held camera stream and
// submits it for verification.
func (w *Workflow) CaptureFrame(ctx context.Context) error {
	w.mu.Lock()
	c, ok := w.step.(Capture)
	if !ok || c.Mode != ModeCamera || w.stream == nil {
		w.unlock()
		return ErrWrongStep
	}
	s, gen := w.stream, w.gen
	w.unlock()

	img, err := s.Capture(ctx)

	w.mu.Lock()
	if w.gen != gen || w.stream != s {
		w.unlock()
		return ErrClosed
	}
	if err != nil {
		w.log.Warnf("WORKFLOW: frame capture failed: %v", err)
		w.notice(Notice{Kind: NoticeCamera, Message: msgCameraPrefix + camera.Reason(err)})
		w.enterCapture(ctx, ModeUpload)
		w.unlock()
		return fmt.Errorf("failed to capture frame: %w", err)
	}
	return w.submit(ctx, img, ModeCamera)
}

// Upload submits an identity-card file for verification.
func (w *Workflow) Upload(ctx context.Context, img model.Image) error {
	w.mu.Lock()
	c, ok := w.step.(Capture)
	if !ok || c.Mode != ModeUpload {
		w.unlock()
		return ErrWrongStep
	}
	return w.submit(ctx, img, ModeUpload)
}

// submit is entered with the lock held and returns with it released.
func (w *Workflow) submit(ctx context.Context, img model.Image, mode Mode) error {
	if err := ValidateImage(img); err != nil {
		w.notice(validationNotice(err))
		w.unlock()
		return err
	}

	w.releaseStream()
	w.setStep(Verifying{Mode: mode, Image: img})
	gen := w.gen
	w.unlock()

	var res model.VerificationResult
	var err error
	if mode == ModeCamera {
		res, err = w.cfg.Verifier.VerifyNID(ctx, img.DataURL())
	} else {
		res, err = w.cfg.Verifier.VerifyNIDUpload(ctx, img)
	}

	w.mu.Lock()
	defer w.unlock()
	if _, ok := w.step.(Verifying); !ok || w.gen != gen {
		w.log.Debug("WORKFLOW: dropping verification result of a closed session")
		return ErrClosed
	}

	switch {
	case err != nil:
		w.log.Errorf("WORKFLOW: verification request failed: %v", err)
		w.notice(Notice{Kind: NoticeNetwork, Message: msgVerifyFailed})
		w.enterCapture(ctx, mode)
		return fmt.Errorf("failed to verify NID: %w", err)
	case !res.Verified():
		w.notice(rejectedNotice(res))
		w.enterCapture(ctx, mode)
		return nil
	default:
		w.setStep(Select{Voter: res})
		return nil
	}
}

// Choose selects an option and arms the confirmation timer.
func (w *Workflow) Choose(opt model.Option) error {
	if !opt.Valid() {
		return fmt.Errorf("invalid ballot option %q", opt)
	}

	w.mu.Lock()
	defer w.unlock()

	s, ok := w.step.(Select)
	if !ok {
		return ErrWrongStep
	}
	w.setStep(Countdown{Voter: s.Voter, Choice: opt, Remaining: ConfirmTicks})
	w.armTimer()
	return nil
}

// Cancel drops the selection and returns to option selection.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.unlock()

	cd, ok := w.step.(Countdown)
	if !ok || cd.Casting {
		return ErrWrongStep
	}
	w.disarmTimer()
	w.setStep(Select{Voter: cd.Voter})
	return nil
}

// Confirm casts the selected vote. It may be called once per countdown;
// further calls while the request is in flight return ErrWrongStep.
func (w *Workflow) Confirm(ctx context.Context) (model.VoteTally, error) {
	w.mu.Lock()
	cd, ok := w.step.(Countdown)
	if !ok || cd.Casting || cd.Remaining <= 0 {
		w.unlock()
		return model.VoteTally{}, ErrWrongStep
	}
	cd.Casting = true
	w.setStep(cd)
	gen := w.gen
	w.unlock()

	tally, err := w.cfg.Caster.CastVote(ctx, cd.Choice)

	w.mu.Lock()
	defer w.unlock()
	cur, ok := w.step.(Countdown)
	if !ok || !cur.Casting || w.gen != gen {
		w.log.Debug("WORKFLOW: dropping vote-cast result of a closed session")
		return tally, err
	}

	if err != nil {
		w.log.Errorf("WORKFLOW: vote-cast request failed: %v", err)
		w.notice(Notice{Kind: NoticeCastFailed, Message: msgCastFailed})
		cur.Casting = false
		w.setStep(cur)
		return model.VoteTally{}, fmt.Errorf("failed to cast vote: %w", err)
	}

	w.disarmTimer()
	w.notice(recordedNotice(cur.Choice))
	w.setStep(Success{Voter: cur.Voter, Choice: cur.Choice, Tally: tally})
	return tally, nil
}

// Tick advances the confirmation timer by one second. It is only needed
// with ManualTimer.
func (w *Workflow) Tick() {
	w.mu.Lock()
	g := w.timerGen
	w.mu.Unlock()
	w.tick(g)
}

func (w *Workflow) tick(g uint64) bool {
	w.mu.Lock()
	defer w.unlock()

	if g != w.timerGen {
		return false
	}
	cd, ok := w.step.(Countdown)
	if !ok {
		return false
	}
	if cd.Casting {
		return true
	}

	cd.Remaining--
	if cd.Remaining <= 0 {
		w.disarmTimer()
		w.notice(Notice{Kind: NoticeTimeout, Message: msgTimeout})
		w.setStep(Select{Voter: cd.Voter})
		return false
	}
	w.setStep(cd)
	return true
}

func (w *Workflow) armTimer() {
	w.disarmTimer()
	g := w.timerGen
	if w.cfg.ManualTimer {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.stopTimer = cancel
	go func() {
		t := time.NewTicker(w.cfg.TickInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if !w.tick(g) {
					return
				}
			}
		}
	}()
}

func (w *Workflow) disarmTimer() {
	w.timerGen++
	if w.stopTimer != nil {
		w.stopTimer()
		w.stopTimer = nil
	}
}

// enterCapture moves to capture in mode. In camera mode the device is
// acquired by unlock after the lock is released, so Close never waits on
// it; a failure falls back to upload mode.
func (w *Workflow) enterCapture(ctx context.Context, mode Mode) {
	w.releaseStream()
	if mode == ModeUpload {
		w.setStep(Capture{Mode: ModeUpload})
		return
	}

	actx, cancel := context.WithCancel(ctx)
	w.acqSeq++
	w.acq = &acquisition{ctx: actx, seq: w.acqSeq}
	w.stopAcq = cancel
	w.setStep(Capture{Mode: ModeCamera})
}

// acquire runs a queued acquisition without the lock held. A stream that
// arrives after its acquisition was abandoned is released at once.
func (w *Workflow) acquire(a *acquisition) {
	s, err := w.cfg.Camera.Acquire(a.ctx)

	w.mu.Lock()
	defer w.unlock()

	if w.acqSeq != a.seq {
		if err == nil {
			if rerr := s.Release(); rerr != nil {
				w.log.Warnf("WORKFLOW: failed to release late camera stream: %v", rerr)
			}
		}
		w.log.Debug("WORKFLOW: dropping abandoned camera acquisition")
		return
	}
	if err != nil {
		w.log.Warnf("WORKFLOW: camera unavailable: %v", err)
		w.notice(Notice{Kind: NoticeCamera, Message: msgCameraPrefix + camera.Reason(err)})
		w.releaseStream()
		w.setStep(Capture{Mode: ModeUpload})
		return
	}
	w.stream = s
	w.setStep(Capture{Mode: ModeCamera, CameraReady: true})
}

// releaseStream gives the camera back and abandons any pending
// acquisition.
func (w *Workflow) releaseStream() {
	w.acqSeq++
	w.acq = nil
	if w.stopAcq != nil {
		w.stopAcq()
		w.stopAcq = nil
	}
	if w.stream == nil {
		return
	}
	if err := w.stream.Release(); err != nil {
		w.log.Warnf("WORKFLOW: failed to release camera: %v", err)
	}
	w.stream = nil
}

func (w *Workflow) setStep(next Step) {
	from := w.step.Name()
	if from != next.Name() {
		w.log.Infof("WORKFLOW: %s -> %s", from, next.Name())
		if w.cfg.Metrics != nil {
			w.cfg.Metrics.WorkflowTransitions.WithLabelValues(from, next.Name()).Inc()
		}
	}
	w.step = next
	w.changed = true
}

func (w *Workflow) notice(n Notice) {
	w.pending = append(w.pending, n)
}

// unlock releases the lock, then delivers queued callbacks and runs a
// queued camera acquisition.
func (w *Workflow) unlock() {
	notices := w.pending
	w.pending = nil
	changed := w.changed
	w.changed = false
	step := w.step
	acq := w.acq
	w.acq = nil
	w.mu.Unlock()

	if w.cfg.OnNotice != nil {
		for _, n := range notices {
			w.cfg.OnNotice(n)
		}
	}
	if changed && w.cfg.OnChange != nil {
		w.cfg.OnChange(step)
	}
	if acq != nil {
		w.acquire(acq)
	}
}
