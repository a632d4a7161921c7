package download

import (
	"context"
	"log/slog"
	"path"
	"strconv"

	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
)

// Config controls how videos are fetched.
type Config struct {
	// Resolution is the maximum video height, e.g. 720.
	Resolution int `yaml:"resolution"`
	// OutputDir is where finished files are written.
	OutputDir string `yaml:"output_dir"`
	// Binary is the yt-dlp executable.
	Binary string `yaml:"binary"`
}

// DefaultConfig returns 720p into "downloads" using yt-dlp from PATH.
func DefaultConfig() Config {
	return Config{Resolution: 720, OutputDir: "downloads", Binary: "yt-dlp"}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Resolution <= 0 {
		c.Resolution = def.Resolution
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.Binary == "" {
		c.Binary = def.Binary
	}
	return c
}

// Downloader runs yt-dlp for download_video jobs.
type Downloader struct {
	cfg    Config
	runner CommandRunner
	logger *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(r CommandRunner) Option {
	return func(d *Downloader) { d.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// New creates a Downloader. Zero config fields take DefaultConfig values.
func New(cfg Config, opts ...Option) *Downloader {
	d := &Downloader{
		cfg:    cfg.withDefaults(),
		runner: ExecRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Downloader) Config() Config { return d.cfg }

// FilePath is where the merged mp4 for jobID ends up.
func (d *Downloader) FilePath(jobID id.JobID) string {
	return path.Join(d.cfg.OutputDir, jobID.String()+".mp4")
}

func (d *Downloader) args(jobID id.JobID, url string) []string {
	return []string{
		"--newline",
		"--no-playlist",
		"--no-colors",
		"-f", "bv*[height<=" + strconv.Itoa(d.cfg.Resolution) + "]+ba/best",
		"--merge-output-format", "mp4",
		"-o", path.Join(d.cfg.OutputDir, jobID.String()+".%(ext)s"),
		"--progress-template", progressTemplate,
		"--extractor-args", "youtube:player_client=android,web",
		url,
	}
}

// Download fetches payload.URL and reports progress through r. Reporter
// failures are not fatal to the download.
func (d *Downloader) Download(ctx context.Context, jobID id.JobID, payload Payload, r job.Reporter) (job.Result, error) {
	url := StripPlaylist(payload.URL)

	onLine := func(line string) {
		p, ok := parseProgress(line)
		if !ok {
			return
		}
		if err := r.Report(ctx, p); err != nil {
			d.logger.Debug("progress not recorded",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := d.runner.Run(ctx, d.cfg.Binary, d.args(jobID, url), onLine); err != nil {
		return job.Result{}, err
	}
	return job.Result{Status: "success", FilePath: d.FilePath(jobID)}, nil
}

// Definition returns the download_video job definition.
func (d *Downloader) Definition() *job.Definition[Payload] {
	return job.NewDefinition(JobType, d.Download, job.WithValidator(Validate))
}
