// Package download implements the download_video job: it fetches a single
// YouTube video with yt-dlp into a local directory and reports download
// progress through the job's reporter.
//
// The package also carries the YouTube URL check used both as the
// payload schema for download_video and by the URL validation endpoint,
// and a metadata probe for previews.
package download
