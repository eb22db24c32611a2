package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/app"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/camera"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/display"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/workflow"
)

type voteFlags struct {
	image      string
	cameraFile string
	option     string
}

func newVoteCmd() *cobra.Command {
	var f voteFlags
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Verify an NID card and cast a vote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVote(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.image, "image", "", "NID card image to upload")
	cmd.Flags().StringVar(&f.cameraFile, "camera-file", "", "still image served as the camera frame")
	cmd.Flags().StringVar(&f.option, "option", "", "ballot option: rice or scale")
	return cmd
}

func readImage(path string) (model.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return model.Image{Name: filepath.Base(path), ContentType: http.DetectContentType(b), Data: b}, nil
}

func prompt(in *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runVote(ctx context.Context, f voteFlags) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Log.Errorf("failed to shut down cleanly: %v", err)
		}
	}()

	var dev camera.Device = camera.Unavailable{}
	if f.cameraFile != "" {
		dev = &camera.FileDevice{Path: f.cameraFile}
	}

	w := a.NewWorkflow(dev, func(n workflow.Notice) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Kind, n.Message)
	}, func(s workflow.Step) {
		logging.Log.Debugf("Workflow step: %s", s.Name())
	})
	w.Open(ctx)
	defer w.Close()

	in := bufio.NewReader(os.Stdin)
	if err := verify(ctx, w, in, f.image); err != nil {
		return err
	}

	sel := w.Step().(workflow.Select)
	fmt.Printf("Verified: %s (NID %s)\n", sel.Voter.Name, sel.Voter.NIDNumber)

	tally, cast, err := ballot(ctx, w, in, os.Stdout, model.Option(f.option))
	if err != nil || !cast {
		return err
	}

	v := display.Votes(tally)
	fmt.Printf("%s %s%%  %s %s%%  (%d votes)\n",
		v.PartyA.Label, display.FormatPercent(v.PartyA.Percent),
		v.PartyB.Label, display.FormatPercent(v.PartyB.Percent), v.Total)
	return nil
}

// ballot asks for an option and its confirmation until the vote is cast
// or the voter declines. When the confirmation window runs out the
// workflow is back at select and the voter is asked again.
func ballot(ctx context.Context, w *workflow.Workflow, in *bufio.Reader, out io.Writer, opt model.Option) (model.VoteTally, bool, error) {
	for {
		for !opt.Valid() {
			answer, err := prompt(in, out, "Choose an option [rice/scale]: ")
			if err != nil {
				return model.VoteTally{}, false, err
			}
			opt = model.Option(strings.ToLower(answer))
		}
		if err := w.Choose(opt); err != nil {
			return model.VoteTally{}, false, err
		}

		answer, err := prompt(in, out, fmt.Sprintf("Confirm your vote for %s within %d seconds [y/N]: ", opt, workflow.ConfirmTicks))
		if err != nil {
			return model.VoteTally{}, false, err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			_ = w.Cancel()
			fmt.Fprintln(out, "Vote cancelled.")
			return model.VoteTally{}, false, nil
		}

		tally, err := w.Confirm(ctx)
		if errors.Is(err, workflow.ErrWrongStep) {
			if _, ok := w.Step().(workflow.Select); ok {
				fmt.Fprintln(out, "The confirmation window expired, please choose again.")
				opt = ""
				continue
			}
		}
		if err != nil {
			return model.VoteTally{}, false, err
		}
		return tally, true, nil
	}
}

// verify loops until the card is accepted. Rejections may be retried with
// another file.
func verify(ctx context.Context, w *workflow.Workflow, in *bufio.Reader, imagePath string) error {
	for {
		c, ok := w.Step().(workflow.Capture)
		if !ok {
			if _, ok := w.Step().(workflow.Select); ok {
				return nil
			}
			return fmt.Errorf("unexpected step %s", w.Step().Name())
		}

		if c.Mode == workflow.ModeCamera && imagePath == "" {
			if _, err := prompt(in, os.Stdout, "Hold the NID card to the camera and press Enter: "); err != nil {
				return err
			}
			if err := w.CaptureFrame(ctx); err != nil {
				logging.Log.Debugf("Capture failed: %v", err)
			}
			continue
		}

		if c.Mode == workflow.ModeCamera {
			if err := w.SwitchMode(ctx); err != nil {
				return err
			}
		}
		if imagePath == "" {
			p, err := prompt(in, os.Stdout, "Path to the NID card image: ")
			if err != nil {
				return err
			}
			imagePath = p
		}

		img, err := readImage(imagePath)
		imagePath = ""
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if err := w.Upload(ctx, img); err != nil {
			logging.Log.Debugf("Upload failed: %v", err)
		}
	}
}
