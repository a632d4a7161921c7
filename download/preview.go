package download

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Preview is the metadata shown before a download is dispatched.
type Preview struct {
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
	Valid     bool    `json:"valid"`
}

// Preview probes url without downloading it.
func (d *Downloader) Preview(ctx context.Context, url string) (Preview, error) {
	if !IsYouTubeURL(url) {
		return Preview{}, ErrNotYouTube
	}

	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"-f", "worst",
		"--extractor-args", "youtube:player_client=android,web",
		StripPlaylist(url),
	}

	var out strings.Builder
	err := d.runner.Run(ctx, d.cfg.Binary, args, func(line string) {
		out.WriteString(line)
	})
	if err != nil {
		return Preview{}, fmt.Errorf("download: preview: %w", err)
	}

	var p Preview
	if err := json.Unmarshal([]byte(out.String()), &p); err != nil {
		return Preview{}, fmt.Errorf("download: preview: decode metadata: %w", err)
	}
	p.Valid = true
	return p, nil
}
