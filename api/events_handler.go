package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/job"
	"github.com/viralclips/dispatch/stream"
)

// EventSource hands out per-job event subscriptions.
type EventSource interface {
	Subscribe(topics ...string) *stream.Subscriber
	RemoveSubscriber(subscriberID string)
}

// DefaultKeepAlive is the idle interval between SSE keep-alive comments.
const DefaultKeepAlive = 15 * time.Second

// jobEvents streams a job's lifecycle as server-sent events. The first
// event is a job.snapshot of the stored record; the stream ends after a
// terminal event or when the client goes away.
func (a *API) jobEvents(c *gin.Context) {
	// Subscribe before reading the record so no event falls in between.
	sub := a.events.Subscribe(stream.JobTopic(c.Param("job_id")))
	defer a.events.RemoveSubscriber(sub.ID())

	j, ok := a.lookupJob(c)
	if !ok {
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	a.sendSnapshot(c, j)
	if j.Status.IsTerminal() {
		return
	}

	keepAlive := time.NewTicker(a.keepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			a.sendKeepAlive(c)
		case evt, ok := <-sub.C():
			if !ok {
				if sub.Overflowed() {
					a.followRecord(c, j, keepAlive.C)
				}
				return
			}
			c.SSEvent(string(evt.Type), evt.Data)
			c.Writer.Flush()
			if evt.Type.Terminal() {
				return
			}
		}
	}
}

// followRecord takes over when the subscriber fell behind and lost the
// terminal event. It re-reads the record on every tick, sends a snapshot
// whenever it changed and ends once the record is terminal or gone.
func (a *API) followRecord(c *gin.Context, last *job.Job, tick <-chan time.Time) {
	ctx := c.Request.Context()
	for {
		j, err := a.eng.Get(ctx, last.ID)
		switch {
		case errors.Is(err, dispatch.ErrJobNotFound):
			return
		case err != nil:
			_ = c.Error(err)
		case j.Status != last.Status || j.Progress != last.Progress || j.Status.IsTerminal():
			a.sendSnapshot(c, j)
			if j.Status.IsTerminal() {
				return
			}
			last = j
		}

		select {
		case <-ctx.Done():
			return
		case <-tick:
			a.sendKeepAlive(c)
		}
	}
}

func (a *API) sendSnapshot(c *gin.Context, j *job.Job) {
	c.SSEvent("job.snapshot", newJobResponse(j))
	c.Writer.Flush()
}

func (a *API) sendKeepAlive(c *gin.Context) {
	_, _ = io.WriteString(c.Writer, ": keep-alive\n\n")
	c.Writer.Flush()
}
