// Package job defines the job record, its state machine, the immutable
// worker registry, and the store interface.
//
// # Job Record
//
// A [Job] is created queued and moves through
//
//	queued → in_progress → completed
//	queued → in_progress → failed
//
// Workers may refine in_progress with their own phases ("downloading",
// "processing_video") through a [Reporter]. Terminal states are final.
//
// # Defining a Job
//
// Use [Definition] with a typed handler. The payload is JSON-decoded and
// validated at dispatch time, and decoded again before the handler runs:
//
//	var Thumbnail = job.NewDefinition("thumbnail",
//	    func(ctx context.Context, jobID id.JobID, in ThumbInput, r job.Reporter) (job.Result, error) {
//	        path, err := render(ctx, in)
//	        return job.Result{Status: "success", FilePath: path}, err
//	    },
//	    job.WithValidator(func(in ThumbInput) error { return in.check() }),
//	)
//
// # Registry
//
// [Registry] maps job types to [Worker] values and is frozen at startup:
//
//	b := job.NewRegistryBuilder()
//	job.Register(b, Thumbnail)
//	reg, err := b.Build()
package job
