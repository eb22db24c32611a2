package workflow

import (
	"errors"
	"fmt"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

// MaxImageSize is the largest accepted identity-card image, inclusive.
const MaxImageSize = 10 * 1024 * 1024

var (
	ErrNotImage  = errors.New("file is not an image")
	ErrTooLarge  = errors.New("image is larger than 10 MB")
	ErrWrongStep = errors.New("action not allowed in the current step")
	ErrClosed    = errors.New("workflow was closed")
)

type NoticeKind string

const (
	NoticeValidation   NoticeKind = "validation"
	NoticeRejected     NoticeKind = "rejected"
	NoticeNetwork      NoticeKind = "network"
	NoticeCamera       NoticeKind = "camera"
	NoticeTimeout      NoticeKind = "timeout"
	NoticeCastFailed   NoticeKind = "cast_failed"
	NoticeVoteRecorded NoticeKind = "vote_recorded"
)

// Notice is a user-visible message raised by a transition.
type Notice struct {
	Kind    NoticeKind
	Message string
}

const (
	msgNotImage     = "Please choose an image file."
	msgTooLarge     = "The image must be 10 MB or smaller."
	msgRejected     = "The NID card could not be verified. Please try again with a clearer image."
	msgVerifyFailed = "Verification failed. Please try again."
	msgTimeout      = "Time is up. Please select your choice again."
	msgCastFailed   = "Your vote could not be recorded. Please try again."
	msgCameraPrefix = "Could not access the camera. "
)

// ValidateImage checks the content type and size of a capture before any
// request is made.
func ValidateImage(img model.Image) error {
	if !img.IsImage() {
		return ErrNotImage
	}
	if len(img.Data) > MaxImageSize {
		return ErrTooLarge
	}
	return nil
}

func validationNotice(err error) Notice {
	if errors.Is(err, ErrTooLarge) {
		return Notice{Kind: NoticeValidation, Message: msgTooLarge}
	}
	return Notice{Kind: NoticeValidation, Message: msgNotImage}
}

func rejectedNotice(r model.VerificationResult) Notice {
	msg := msgRejected
	if r.Message != "" {
		msg = r.Message
	}
	return Notice{Kind: NoticeRejected, Message: msg}
}

func recordedNotice(choice model.Option) Notice {
	return Notice{Kind: NoticeVoteRecorded, Message: fmt.Sprintf("Your vote for %s has been recorded.", choice)}
}
