package model

import (
	"encoding/base64"
	"strings"
)

// Image is a captured frame or an uploaded identity-card file.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

func (i Image) IsImage() bool {
	return strings.HasPrefix(i.ContentType, "image/")
}

// DataURL encodes the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

type VerificationResult struct {
	Success              bool   `json:"success"`
	IsValid              bool   `json:"isValid"`
	Message              string `json:"message,omitempty"`
	ImagePath            string `json:"imagePath,omitempty"`
	Name                 string `json:"name,omitempty"`
	NIDNumber            string `json:"nidNumber,omitempty"`
	HasVoted             bool   `json:"hasVoted,omitempty"`
	HasVotedInReferendum bool   `json:"hasVotedInReferendum,omitempty"`
}

// Verified reports whether the backend accepted the identity card.
func (r VerificationResult) Verified() bool {
	return r.IsValid || r.Success
}
