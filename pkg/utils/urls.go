package utils

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// IsRemoteURL reports whether src is an http(s) URL rather than a local path.
func IsRemoteURL(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// ResolveSource resolves an audio source against a base location.
// Absolute URLs and absolute paths are returned unchanged. Relative
// sources are joined onto base, which may itself be a URL or a directory.
func ResolveSource(base, src string) string {
	if IsRemoteURL(src) || base == "" {
		return src
	}
	if IsRemoteURL(base) {
		u, _ := url.Parse(base)
		if strings.HasPrefix(src, "/") {
			u.Path = src
		} else {
			u.Path = path.Join(u.Path, src)
		}
		return u.String()
	}
	if filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(base, src)
}

// SourceName returns the last path element of a local path or URL.
func SourceName(src string) string {
	if IsRemoteURL(src) {
		u, _ := url.Parse(src)
		if name := path.Base(u.Path); name != "/" && name != "." {
			return name
		}
		return u.Host
	}
	return filepath.Base(src)
}
