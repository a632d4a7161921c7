package job

import "strconv"

// Patch is a partial update of a job record. Only non-nil fields are
// written; everything else keeps its stored value.
type Patch struct {
	Status   *Status
	Progress *string
	ETA      *string
	Result   *string
	Error    *string
	FilePath *string
}

// WithStatus returns a copy of p that sets status.
func (p Patch) WithStatus(s Status) Patch { p.Status = &s; return p }

// WithProgress returns a copy of p that sets progress.
func (p Patch) WithProgress(v string) Patch { p.Progress = &v; return p }

// WithETA returns a copy of p that sets eta.
func (p Patch) WithETA(v string) Patch { p.ETA = &v; return p }

// WithResult returns a copy of p that sets result.
func (p Patch) WithResult(v string) Patch { p.Result = &v; return p }

// WithError returns a copy of p that sets error.
func (p Patch) WithError(v string) Patch { p.Error = &v; return p }

// WithFilePath returns a copy of p that sets file_path.
func (p Patch) WithFilePath(v string) Patch { p.FilePath = &v; return p }

// IsEmpty reports whether p sets no field.
func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.Progress == nil && p.ETA == nil &&
		p.Result == nil && p.Error == nil && p.FilePath == nil
}

// Fields returns the patch as persisted field name → value pairs.
func (p Patch) Fields() map[string]string {
	m := make(map[string]string, 6)
	if p.Status != nil {
		m["status"] = string(*p.Status)
	}
	if p.Progress != nil {
		m["progress"] = *p.Progress
	}
	if p.ETA != nil {
		m["eta"] = *p.ETA
	}
	if p.Result != nil {
		m["result"] = *p.Result
	}
	if p.Error != nil {
		m["error"] = *p.Error
	}
	if p.FilePath != nil {
		m["file_path"] = *p.FilePath
	}
	return m
}

// StartPatch is the runner's first write.
func StartPatch() Patch {
	return Patch{}.WithStatus(StatusInProgress).WithProgress(ProgressStart)
}

// CompletePatch is the runner's single terminal write on success. file_path is
// included only when the worker produced an artifact.
func CompletePatch(r Result) Patch {
	p := Patch{}.WithStatus(StatusCompleted).WithProgress(ProgressDone).WithResult(r.String())
	if r.FilePath != "" {
		p = p.WithFilePath(r.FilePath)
	}
	return p
}

// FailPatch is the runner's terminal write on failure. Progress and result
// keep their last values.
func FailPatch(msg string) Patch {
	return Patch{}.WithStatus(StatusFailed).WithError(msg)
}

// ETASeconds formats an eta in whole seconds.
func ETASeconds(sec int) string { return strconv.Itoa(sec) }
