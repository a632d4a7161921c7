package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/api"
	"github.com/viralclips/dispatch/config"
	"github.com/viralclips/dispatch/download"
	"github.com/viralclips/dispatch/engine"
	"github.com/viralclips/dispatch/id"
	"github.com/viralclips/dispatch/job"
	"github.com/viralclips/dispatch/store/memory"
	redisstore "github.com/viralclips/dispatch/store/redis"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("LOG_LEVEL", "error")
	return mr
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dispatchd dev")
}

func TestJobGet(t *testing.T) {
	mr := useMiniredis(t)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	st := redisstore.New(client)

	ctx := context.Background()
	created, err := st.CreateJob(ctx, "download_video", json.RawMessage(`{"url":"https://youtu.be/abc"}`))
	require.NoError(t, err)
	require.NoError(t, st.UpdateJob(ctx, created.ID, job.Patch{}.WithStatus("downloading").WithProgress("42.0%")))

	out, err := execute(t, "job", "get", created.ID.String())
	require.NoError(t, err)

	var got job.Job
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, job.Status("downloading"), got.Status)
	assert.Equal(t, "42.0%", got.Progress)
}

func TestJobGet_Errors(t *testing.T) {
	useMiniredis(t)

	_, err := execute(t, "job", "get", "not-an-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid job id")

	_, err = execute(t, "job", "get", id.NewJobID().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = execute(t, "job", "get")
	require.Error(t, err)
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("REDIS_PORT", strconv.Itoa(0))
	_, err := execute(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis port")
}

type finishedRunner struct{}

func (finishedRunner) Run(_ context.Context, _ string, _ []string, onLine func(string)) error {
	onLine("dispatch-progress finished 100% NA")
	return nil
}

func startAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dl := download.New(download.Config{}, download.WithRunner(finishedRunner{}))
	b := job.NewRegistryBuilder()
	job.Register(b, dl.Definition())
	reg, err := b.Build()
	require.NoError(t, err)

	d, err := dispatch.New(dispatch.WithStore(memory.New()))
	require.NoError(t, err)
	eng, err := engine.Build(d, reg)
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))

	srv := httptest.NewServer(api.New(eng).Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Stop(ctx)
	})
	return srv.URL
}

func TestJobSubmit(t *testing.T) {
	server := startAPI(t)

	out, err := execute(t, "job", "submit", "--server", server,
		"--payload", `{"url":"https://youtu.be/abc"}`)
	require.NoError(t, err)
	var queued map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &queued), out)
	assert.Equal(t, "queued", queued["status"])
	assert.NotEmpty(t, queued["job_id"])

	out, err = execute(t, "job", "submit", "--server", server, "--wait", "--interval", "10ms",
		"--payload", `{"url":"https://youtu.be/abc"}`)
	require.NoError(t, err)
	var done map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &done), out)
	assert.Equal(t, "completed", done["status"])
	assert.Equal(t, "downloads/"+done["job_id"].(string)+".mp4", done["file_path"])
}

func TestJobSubmit_Errors(t *testing.T) {
	server := startAPI(t)

	_, err := execute(t, "job", "submit", "--server", server, "--payload", "{")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")

	_, err = execute(t, "job", "submit", "--server", server, "--type", "transcode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid job_type: transcode")

	_, err = execute(t, "job", "submit", "--server", server, "--payload", `{"url":"https://example.com"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid payload for download_video")
}

func TestOpenStore_UsesConfiguredTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port
	cfg.Dispatch.JobTTL = time.Hour

	ctx := context.Background()
	st, err := openStore(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	j, err := st.CreateJob(ctx, "download_video", json.RawMessage(`{"url":"https://youtu.be/abc"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("job:"+j.ID.String()))
}
