// Package id defines the identifiers handed out by dispatch.
//
// A job ID is the only handle through which a job record can be reached,
// so it must be unguessable in practice and unique across processes. IDs
// are TypeIDs ("job_01h455vb4pex5vsknk084sn02q"): a prefix naming the
// entity and a UUIDv7 suffix, which also makes them sort by creation time.
package id

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("id: invalid identifier")

// Prefix identifies the entity type encoded in an ID.
type Prefix string

const (
	PrefixJob    Prefix = "job"
	PrefixWorker Prefix = "wkr"
)

// ID is a prefix-qualified TypeID. The zero value is Nil.
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver.
type ID struct {
	tid typeid.TypeID
	ok  bool
}

// Nil is the zero-value ID.
var Nil ID

// JobID identifies a job record (prefix "job").
type JobID = ID

// WorkerID identifies a worker pool instance (prefix "wkr").
type WorkerID = ID

// New generates an ID with the given prefix. An invalid prefix is a
// programming error and panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", prefix, err))
	}
	return ID{tid: tid, ok: true}
}

// NewJobID generates a job ID.
func NewJobID() ID { return New(PrefixJob) }

// NewWorkerID generates a worker pool ID.
func NewWorkerID() ID { return New(PrefixWorker) }

// Parse parses any TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("%w: %q: %w", ErrInvalid, s, err)
	}
	return ID{tid: tid, ok: true}, nil
}

// ParseWithPrefix parses s and requires its prefix to be want.
func ParseWithPrefix(s string, want Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := parsed.Prefix(); got != want {
		return Nil, fmt.Errorf("%w: prefix %q, want %q", ErrInvalid, got, want)
	}
	return parsed, nil
}

// ParseJobID parses a job ID. IDs of other entities are rejected.
func ParseJobID(s string) (ID, error) { return ParseWithPrefix(s, PrefixJob) }

// ParseWorkerID parses a worker pool ID.
func ParseWorkerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixWorker) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.ok {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the entity prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.ok {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.ok }

// MarshalText implements encoding.TextMarshaler. Nil encodes as "".
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" decodes to Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
