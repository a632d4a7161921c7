package download

import (
	"strconv"
	"strings"

	"github.com/viralclips/dispatch/job"
)

// Worker phases written while a download runs.
const (
	StatusDownloading     job.Status = "downloading"
	StatusProcessingVideo job.Status = "processing_video"
)

// progressMarker prefixes the machine-readable progress lines we ask
// yt-dlp to print.
const progressMarker = "dispatch-progress"

// progressTemplate makes yt-dlp print one line per progress tick:
//
//	dispatch-progress <status> <percent> <eta>
const progressTemplate = "download:" + progressMarker +
	" %(progress.status)s %(progress._percent_str)s %(progress.eta)s"

// parseProgress turns a progress line into a reporter update. Lines that
// are not progress lines are ignored.
func parseProgress(line string) (job.Progress, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != progressMarker {
		return job.Progress{}, false
	}

	switch fields[1] {
	case "downloading":
		p := job.Progress{Status: StatusDownloading, Progress: "0%", ETA: "0"}
		if len(fields) > 2 {
			p.Progress = normalizePercent(fields[2])
		}
		if len(fields) > 3 {
			p.ETA = normalizeETA(fields[3])
		}
		return p, true
	case "finished":
		return job.Progress{Status: StatusProcessingVideo, Progress: "100%"}, true
	default:
		return job.Progress{}, false
	}
}

// normalizePercent keeps values like "42.5%" and maps yt-dlp's
// placeholders to "0%".
func normalizePercent(s string) string {
	v := strings.TrimSuffix(s, "%")
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return "0%"
	}
	return v + "%"
}

// normalizeETA returns whole seconds; unknown ("NA", "None") becomes "0".
func normalizeETA(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return "0"
	}
	return job.ETASeconds(int(f))
}
