// Package download fetches a resolved artifact URL and persists it to the
// local filesystem.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 5 * time.Minute
	fallbackFileName   = "artifact.bin"
)

// Client downloads artifacts over HTTP.
type Client struct {
	http *http.Client
}

// NewClient constructs a download client. A nil httpClient selects a
// default with a generous timeout for large artifacts.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{http: httpClient}
}

// Save fetches rawURL and writes the bytes to outputPath, returning the
// final file path. When outputPath is a directory (existing, or ending in
// a path separator) the filename is derived from the Content-Disposition
// header, then from the URL path.
func (c *Client) Save(ctx context.Context, rawURL, outputPath string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("download: url is required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return "", errors.New("download: output path is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("download: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("download: fetch failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	target, err := resolveTarget(outputPath, rawURL, resp.Header.Get("Content-Disposition"))
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(target); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("download: create output directory: %w", err)
		}
	}

	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("download: create %s: %w", target, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return "", fmt.Errorf("download: write %s: %w", target, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("download: close %s: %w", target, err)
	}
	return target, nil
}

func resolveTarget(outputPath, rawURL, disposition string) (string, error) {
	isDir := strings.HasSuffix(outputPath, string(os.PathSeparator))
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		isDir = true
	}
	if !isDir {
		return outputPath, nil
	}
	return filepath.Join(outputPath, deriveFileName(rawURL, disposition)), nil
}

func deriveFileName(rawURL, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := sanitizeFileName(params["filename"]); name != "" {
				return name
			}
		}
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if name := sanitizeFileName(path.Base(parsed.Path)); name != "" {
			return name
		}
	}
	return fallbackFileName
}

// sanitizeFileName strips any path components a server may have smuggled
// into a suggested filename.
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return ""
	}
	name = filepath.Base(name)
	if name == "." || name == string(os.PathSeparator) {
		return ""
	}
	return name
}
