package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, os.WriteFile(path, jpegHeader, 0o600))
	dev := &FileDevice{Path: path}

	t.Run("Happy path - capture", func(t *testing.T) {
		s, err := dev.Acquire(context.Background())
		require.NoError(t, err)
		defer s.Release()

		img, err := s.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.ContentType)
		assert.Equal(t, "frame.jpg", img.Name)
		assert.True(t, img.IsImage())
	})

	t.Run("Unhappy path - busy until released", func(t *testing.T) {
		s, err := dev.Acquire(context.Background())
		require.NoError(t, err)

		_, err = dev.Acquire(context.Background())
		assert.ErrorIs(t, err, ErrDeviceBusy)

		require.NoError(t, s.Release())
		require.NoError(t, s.Release())
		_, err = s.Capture(context.Background())
		assert.Error(t, err)

		s2, err := dev.Acquire(context.Background())
		require.NoError(t, err)
		require.NoError(t, s2.Release())
	})

	t.Run("Unhappy path - missing file", func(t *testing.T) {
		_, err := (&FileDevice{Path: filepath.Join(t.TempDir(), "none.jpg")}).Acquire(context.Background())
		assert.ErrorIs(t, err, ErrNoDevice)
	})
}

func TestFileDeviceEncodesFramesAsJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		src.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	t.Run("Happy path - png re-encoded", func(t *testing.T) {
		s, err := (&FileDevice{Path: path}).Acquire(context.Background())
		require.NoError(t, err)
		defer s.Release()

		img, err := s.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.ContentType)
		assert.Equal(t, "frame.jpg", img.Name)
		assert.True(t, strings.HasPrefix(img.DataURL(), "data:image/jpeg;base64,"))

		decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, src.Bounds(), decoded.Bounds())
	})

	t.Run("Unhappy path - not an image", func(t *testing.T) {
		txt := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))

		s, err := (&FileDevice{Path: txt}).Acquire(context.Background())
		require.NoError(t, err)
		defer s.Release()

		_, err = s.Capture(context.Background())
		assert.Error(t, err)
	})
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestReason(t *testing.T) {
	assert.Contains(t, Reason(ErrPermissionDenied), "denied")
	assert.Contains(t, Reason(ErrNoDevice), "No camera")
	assert.Contains(t, Reason(ErrDeviceBusy), "another application")
	assert.Contains(t, Reason(errors.New("driver crash")), "file upload")
}
