// Package camera abstracts the video input used to photograph an identity
// card.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/atomic"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera found")
	ErrDeviceBusy       = errors.New("camera is in use by another application")
)

// Device hands out exclusive video streams.
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

type Stream interface {
	Capture(ctx context.Context) (model.Image, error)
	Release() error
}

// Reason is the user-facing explanation for an acquisition failure.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Camera access was denied. Allow camera access and try again."
	case errors.Is(err, ErrNoDevice):
		return "No camera was found on this device."
	case errors.Is(err, ErrDeviceBusy):
		return "The camera is being used by another application."
	default:
		return "Use the file upload option instead."
	}
}

// Unavailable is the device for hosts without a camera.
type Unavailable struct{}

func (Unavailable) Acquire(context.Context) (Stream, error) {
	return nil, ErrNoDevice
}

// FileDevice serves the image at Path as the camera frame, e.g. a still
// written by an external capture tool. Only one stream can be held at a
// time.
type FileDevice struct {
	Path  string
	inUse atomic.Bool
}

func (d *FileDevice) Acquire(_ context.Context) (Stream, error) {
	if _, err := os.Stat(d.Path); err != nil {
		return nil, classify(err)
	}
	if !d.inUse.CompareAndSwap(false, true) {
		return nil, ErrDeviceBusy
	}
	return &fileStream{dev: d}, nil
}

type fileStream struct {
	dev      *FileDevice
	released atomic.Bool
}

func (s *fileStream) Capture(_ context.Context) (model.Image, error) {
	if s.released.Load() {
		return model.Image{}, errors.New("stream released")
	}
	b, err := os.ReadFile(s.dev.Path)
	if err != nil {
		return model.Image{}, classify(err)
	}
	return toJPEG(filepath.Base(s.dev.Path), b)
}

// frameQuality matches what browsers use for canvas JPEG exports.
const frameQuality = 92

// toJPEG returns the frame as a JPEG, re-encoding other image formats.
func toJPEG(name string, b []byte) (model.Image, error) {
	name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	if http.DetectContentType(b) == "image/jpeg" {
		return model.Image{Name: name, ContentType: "image/jpeg", Data: b}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return model.Image{}, fmt.Errorf("frame is not a readable image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: frameQuality}); err != nil {
		return model.Image{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	return model.Image{Name: name, ContentType: "image/jpeg", Data: buf.Bytes()}, nil
}

func (s *fileStream) Release() error {
	if s.released.CompareAndSwap(false, true) {
		s.dev.inUse.Store(false)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return err
	}
}
