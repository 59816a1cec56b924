package response

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/text/language"
)

// Recorder is a Sink that captures operations for later replay.
//
// Recorder is safe for concurrent use. Once sealed, writes fail with
// ErrSealed and setters are ignored.
type Recorder struct {
	mu     sync.Mutex
	ops    []Operation
	size   int64
	sealed bool
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(op Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	r.ops = append(r.ops, op)
	return nil
}

func (r *Recorder) SetStatus(code int) {
	_ = r.record(Operation{Kind: KindSetStatus, Code: code})
}

func (r *Recorder) SendError(code int, msg string) error {
	return r.record(Operation{Kind: KindSendError, Code: code, Value: msg})
}

func (r *Recorder) SendRedirect(location string) error {
	return r.record(Operation{Kind: KindSendRedirect, Value: location})
}

func (r *Recorder) SetHeader(name, value string) {
	_ = r.record(Operation{Kind: KindSetHeader, Name: name, Value: value})
}

func (r *Recorder) AddHeader(name, value string) {
	_ = r.record(Operation{Kind: KindAddHeader, Name: name, Value: value})
}

func (r *Recorder) AddCookie(cookie *http.Cookie) {
	if cookie == nil {
		return
	}
	c := *cookie
	_ = r.record(Operation{Kind: KindAddCookie, Cookie: &c})
}

func (r *Recorder) SetContentType(contentType string) {
	_ = r.record(Operation{Kind: KindSetContentType, Value: contentType})
}

func (r *Recorder) SetContentLength(length int64) {
	_ = r.record(Operation{Kind: KindSetContentLength, Size: length})
}

func (r *Recorder) SetLocale(tag language.Tag) {
	_ = r.record(Operation{Kind: KindSetLocale, Locale: tag})
}

func (r *Recorder) SetBufferSize(size int) {
	_ = r.record(Operation{Kind: KindSetBufferSize, Size: int64(size)})
}

// Write appends p to the recording. Consecutive writes extend the same
// operation.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return 0, ErrSealed
	}
	if n := len(r.ops); n > 0 && r.ops[n-1].Kind == KindWrite {
		r.ops[n-1].Data = append(r.ops[n-1].Data, p...)
	} else {
		r.ops = append(r.ops, Operation{Kind: KindWrite, Data: append([]byte(nil), p...)})
	}
	r.size += int64(len(p))
	return len(p), nil
}

func (r *Recorder) Flush() error {
	return r.record(Operation{Kind: KindFlush})
}

func (r *Recorder) Reset() error {
	return r.record(Operation{Kind: KindReset})
}

func (r *Recorder) ResetBuffer() error {
	return r.record(Operation{Kind: KindResetBuffer})
}

// Len returns the number of operations recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Sealed reports whether Seal has been called.
func (r *Recorder) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Seal stops recording and returns the captured operations. Seal panics if
// called twice.
func (r *Recorder) Seal() *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic("response: recorder sealed twice")
	}
	r.sealed = true
	rec := &Recording{ops: r.ops, size: r.size}
	r.ops = nil
	return rec
}

// Recording is an immutable, ordered list of operations. It can be replayed
// any number of times.
type Recording struct {
	ops  []Operation
	size int64
}

// Replay performs every recorded operation on s, in order. It stops at the
// first error.
func (r *Recording) Replay(s Sink) error {
	if s == nil {
		panic("response: replay into nil sink")
	}
	for i := range r.ops {
		op := r.ops[i].clone()
		if err := op.Apply(s); err != nil {
			return fmt.Errorf("replay %s (operation %d): %w", op.Kind, i, err)
		}
	}
	return nil
}

// Operations returns a copy of the recorded operations.
func (r *Recording) Operations() []Operation {
	out := make([]Operation, len(r.ops))
	for i, op := range r.ops {
		out[i] = op.clone()
	}
	return out
}

// Len returns the number of operations.
func (r *Recording) Len() int { return len(r.ops) }

// Size returns the total number of body bytes.
func (r *Recording) Size() int64 { return r.size }
