package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/cache"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

// VerifyNID submits a camera frame encoded as a data URL.
func (c *Client) VerifyNID(ctx context.Context, imageDataURL string) (model.VerificationResult, error) {
	body := struct {
		Image string `json:"image"`
	}{imageDataURL}
	return mutate[model.VerificationResult](ctx, c, nil, c.postJSON("/nid/verify", body))
}

// VerifyNIDUpload sends an identity-card file as the multipart field
// nidImage.
func (c *Client) VerifyNIDUpload(ctx context.Context, img model.Image) (model.VerificationResult, error) {
	const endpoint = "/nid/upload"
	upload := func(ctx context.Context) ([]byte, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="nidImage"; filename=%q`, uploadName(img)))
		h.Set("Content-Type", img.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("failed to write multipart part: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("failed to close multipart writer: %w", err)
		}

		raw, err := c.do(ctx, http.MethodPost, endpoint, &buf, mw.FormDataContentType())
		if err != nil {
			return nil, err
		}
		return unwrap(endpoint, raw)
	}
	return mutate[model.VerificationResult](ctx, c, []cache.Tag{cache.TagNID}, upload)
}

// NIDImage returns the raw bytes of a previously uploaded image. The
// endpoint has no envelope.
func (c *Client) NIDImage(ctx context.Context, filename string) ([]byte, error) {
	endpoint := "/nid/images/" + url.PathEscape(filename)
	q := cache.Query{
		Key:  "GET " + endpoint,
		Tags: []cache.Tag{cache.TagNID},
		Fetch: func(ctx context.Context) ([]byte, error) {
			return c.do(ctx, http.MethodGet, endpoint, nil, "")
		},
	}
	return c.cache.Query(ctx, q)
}

func uploadName(img model.Image) string {
	if img.Name != "" {
		return img.Name
	}
	return "nid"
}
