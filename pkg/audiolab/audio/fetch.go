package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/himanishpuri/AudioLab/pkg/utils"
)

// MaxFetchBytes bounds remote downloads.
const MaxFetchBytes = 200 << 20

// HTTPClient is used by Fetch. Tests may replace it.
var HTTPClient = &http.Client{Timeout: 2 * time.Minute}

// Fetch downloads a remote audio file into dir, bypassing HTTP caches.
// The returned path keeps the URL's extension so the decoder can be chosen.
func Fetch(ctx context.Context, url, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch failed %d", resp.StatusCode)
	}

	if err := utils.MakeDir(dir); err != nil {
		return "", err
	}
	ext := path.Ext(req.URL.Path)
	if ext == "" {
		ext = ".bin"
	}
	out, err := os.CreateTemp(dir, "fetch_*"+ext)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(out, io.LimitReader(resp.Body, MaxFetchBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxFetchBytes {
		err = fmt.Errorf("remote file exceeds %d bytes", MaxFetchBytes)
	}
	if err != nil {
		utils.DeleteFile(out.Name())
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	return filepath.Clean(out.Name()), nil
}

// Source is a decoded input together with where it came from.
type Source struct {
	Name   string
	Path   string // local file the samples were decoded from
	Buffer *Buffer
	remote bool
}

// Cleanup removes files that Open downloaded.
func (s *Source) Cleanup() {
	if s != nil && s.remote {
		utils.DeleteFile(s.Path)
	}
}

// Open decodes a local path or http(s) URL.
func Open(ctx context.Context, src, tempDir string, cfg ConvertWAVConfig) (*Source, error) {
	out := &Source{Name: utils.SourceName(src), Path: src}
	if utils.IsRemoteURL(src) {
		p, err := Fetch(ctx, src, tempDir)
		if err != nil {
			return nil, err
		}
		out.Path = p
		out.remote = true
	}

	buf, err := ReadFile(ctx, out.Path, tempDir, cfg)
	if err != nil {
		out.Cleanup()
		return nil, err
	}
	out.Buffer = buf
	return out, nil
}
