package devserver

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

// Registry fakes NID verification: any decodable image is accepted and
// assigned a voter from the seed.
type Registry struct {
	voters []string

	mu     sync.Mutex
	next   int
	images map[string]storedImage
}

type storedImage struct {
	contentType string
	data        []byte
}

func NewRegistry(voters []string) *Registry {
	return &Registry{voters: voters, images: make(map[string]storedImage)}
}

// VerifyDataURL checks a `data:image/...;base64,` URL.
func (r *Registry) VerifyDataURL(dataURL string) model.VerificationResult {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return model.VerificationResult{Message: "Image must be a base64 image data URL"}
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(b) == 0 {
		return model.VerificationResult{Message: "Image data could not be decoded"}
	}
	return r.accept("")
}

// Store keeps an uploaded card image and verifies it.
func (r *Registry) Store(filename, contentType string, data []byte) model.VerificationResult {
	if !strings.HasPrefix(contentType, "image/") || len(data) == 0 {
		return model.VerificationResult{Message: "Only image files are accepted"}
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	r.mu.Lock()
	r.images[name] = storedImage{contentType: contentType, data: data}
	r.mu.Unlock()

	return r.accept("/api/nid/images/" + name)
}

func (r *Registry) Image(name string) (string, []byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[name]
	return img.contentType, img.data, ok
}

func (r *Registry) accept(imagePath string) model.VerificationResult {
	r.mu.Lock()
	name := r.voters[r.next%len(r.voters)]
	r.next++
	r.mu.Unlock()

	return model.VerificationResult{
		Success:   true,
		IsValid:   true,
		Message:   "NID verified",
		ImagePath: imagePath,
		Name:      name,
		NIDNumber: nidNumber(uuid.New()),
	}
}

// nidNumber derives a 10-digit card number from id.
func nidNumber(id uuid.UUID) string {
	n := new(big.Int).SetBytes(id[:])
	n.Mod(n, big.NewInt(9_000_000_000))
	n.Add(n, big.NewInt(1_000_000_000))
	return fmt.Sprintf("%d", n)
}
