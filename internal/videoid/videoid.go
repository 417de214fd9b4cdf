package videoid

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ID is a YouTube video identifier as it appears in watch URLs.
type ID string

var (
	// ErrParse is returned when the input is not an absolute URL.
	ErrParse = errors.New("malformed url")
	// ErrNotVideo is returned for well-formed URLs that do not point at a video.
	ErrNotVideo = errors.New("not a video url")
)

// Extract returns the video identifier for a YouTube watch, shorts, embed or
// youtu.be URL. The second return is false for anything else, including
// malformed input.
func Extract(rawURL string) (ID, bool) {
	id, err := Parse(rawURL)
	if err != nil {
		return "", false
	}
	return id, true
}

// Parse is Extract with the reason for rejection. Errors wrap ErrParse or
// ErrNotVideo.
func Parse(rawURL string) (ID, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrParse, rawURL)
	}

	// Matching runs on the path as written, so percent-escapes stay in the ID.
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := u.EscapedPath()
	segments := pathSegments(path)

	switch {
	case host == "youtu.be":
		if len(segments) > 0 {
			return ID(segments[0]), nil
		}
	case strings.HasSuffix(host, "youtube.com"):
		switch {
		case path == "/watch":
			if v := u.Query().Get("v"); v != "" {
				return ID(v), nil
			}
		case strings.HasPrefix(path, "/shorts/"), strings.HasPrefix(path, "/embed/"):
			if len(segments) > 1 {
				return ID(segments[1]), nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotVideo, rawURL)
}

// pathSegments splits p on "/" and drops empty segments.
func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
