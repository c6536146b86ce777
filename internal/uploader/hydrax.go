package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// hydraxResponse is the upload service's reply shape.
type hydraxResponse struct {
	Status    bool   `json:"status"`
	Slug      string `json:"slug"`
	URLIframe string `json:"urlIframe"`
}

// Hydrax uploads files to the Hydrax/Abyss hosting endpoint via a multipart
// POST and normalizes the response to a Result.
type Hydrax struct {
	uploadURL string
	http      *http.Client
	logger    *zap.Logger
}

// NewHydrax creates a Hydrax uploader for the given endpoint.
func NewHydrax(uploadURL string, timeout time.Duration, logger *zap.Logger) *Hydrax {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hydrax{
		uploadURL: uploadURL,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Upload streams the file as the "file" form field. The hosted ID is the
// returned slug; the public URL is the iframe URL with its query stripped.
func (h *Hydrax) Upload(ctx context.Context, filePath string) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.uploadURL, pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	h.logger.Info("uploading file", zap.String("file", filepath.Base(filePath)))
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload status: %d", resp.StatusCode)
	}

	var hr hydraxResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if !hr.Status || hr.Slug == "" {
		return nil, fmt.Errorf("upload rejected by service")
	}

	return &Result{ID: hr.Slug, URL: stripQuery(hr.URLIframe)}, nil
}

// stripQuery removes the query string from a URL. Malformed URLs are returned
// unchanged.
func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
