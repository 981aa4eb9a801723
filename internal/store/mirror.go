package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// FileMirror writes each snapshot to a local JSON file.
type FileMirror struct {
	Path string
}

// NewFileMirror creates a mirror writing to path.
func NewFileMirror(path string) *FileMirror {
	return &FileMirror{Path: path}
}

// Name identifies the mirror in logs.
func (m *FileMirror) Name() string {
	return "file:" + m.Path
}

// Push replaces the file atomically via a temporary file in the same directory.
func (m *FileMirror) Push(_ context.Context, snapshot []byte) error {
	const op = "FileMirror.Push"

	dir := filepath.Dir(m.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmp, err := os.CreateTemp(dir, ".osgb-snapshot-*.json")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp.Name(), m.Path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HTTPMirror PUTs each snapshot to a remote endpoint.
type HTTPMirror struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewHTTPMirror creates a mirror with a bounded request timeout.
func NewHTTPMirror(url, token string) *HTTPMirror {
	return &HTTPMirror{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the mirror in logs.
func (m *HTTPMirror) Name() string {
	return "http:" + m.URL
}

// Push sends the snapshot as the request body. Any non-2xx status is an error.
func (m *HTTPMirror) Push(ctx context.Context, snapshot []byte) error {
	const op = "HTTPMirror.Push"

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, m.URL, bytes.NewReader(snapshot))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.Token)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: remote returned %s: %s", op, resp.Status, bytes.TrimSpace(body))
	}
	return nil
}
