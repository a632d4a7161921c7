package download

import (
	"errors"
	"regexp"
	"strings"
)

// JobType is the registry key of the download worker.
const JobType = "download_video"

// Payload is the download_video request body.
type Payload struct {
	URL string `json:"url"`
}

var (
	// ErrMissingURL is returned for a payload without a url.
	ErrMissingURL = errors.New("download: url is required")
	// ErrNotYouTube is returned for a url that is not a YouTube link.
	ErrNotYouTube = errors.New("download: not a YouTube URL")
)

var youtubeURL = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+$`)

// IsYouTubeURL reports whether s looks like a YouTube video link.
func IsYouTubeURL(s string) bool { return youtubeURL.MatchString(s) }

// Validate is the download_video payload schema.
func Validate(p Payload) error {
	switch {
	case strings.TrimSpace(p.URL) == "":
		return ErrMissingURL
	case !IsYouTubeURL(p.URL):
		return ErrNotYouTube
	}
	return nil
}

// StripPlaylist drops a "&list=..." suffix so only the single video is
// fetched.
func StripPlaylist(url string) string {
	if i := strings.Index(url, "&list="); i >= 0 {
		return url[:i]
	}
	return url
}
