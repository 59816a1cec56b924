package response

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/text/language"
)

// DefaultBufferSize is the body buffer size of a Live sink.
const DefaultBufferSize = 8192

// Live is a Sink writing to an http.ResponseWriter.
//
// Status and headers stay mutable until the response commits. Body bytes are
// held in a buffer and the response commits when the buffer overflows, on
// Flush, on SendError or SendRedirect, or on Close.
type Live struct {
	mu         sync.Mutex
	w          http.ResponseWriter
	status     int
	buf        []byte
	bufferSize int
	committed  bool
	written    int64

	// inherited holds the headers present on w when the Live was created,
	// typically set by outer middleware.
	inherited http.Header
}

var _ Sink = (*Live)(nil)

// NewLive wraps w.
func NewLive(w http.ResponseWriter) *Live {
	return &Live{
		w:          w,
		status:     http.StatusOK,
		bufferSize: DefaultBufferSize,
		inherited:  w.Header().Clone(),
	}
}

func (l *Live) SetStatus(code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.committed {
		l.status = code
	}
}

// SendError discards any buffered body and commits a plain text error
// response. An empty msg uses the status text.
func (l *Live) SendError(code int, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.committed {
		return ErrCommitted
	}
	if msg == "" {
		msg = http.StatusText(code)
	}
	h := l.w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	l.buf = l.buf[:0]
	l.status = code
	l.commitLocked()
	return l.writeLocked([]byte(msg))
}

func (l *Live) SendRedirect(location string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.committed {
		return ErrCommitted
	}
	l.w.Header().Set("Location", location)
	l.buf = l.buf[:0]
	l.status = http.StatusFound
	l.commitLocked()
	return nil
}

func (l *Live) SetHeader(name, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.committed {
		l.w.Header().Set(name, value)
	}
}

func (l *Live) AddHeader(name, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.committed {
		l.w.Header().Add(name, value)
	}
}

func (l *Live) AddCookie(cookie *http.Cookie) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.committed && cookie != nil {
		http.SetCookie(l.w, cookie)
	}
}

func (l *Live) SetContentType(contentType string) {
	l.SetHeader("Content-Type", contentType)
}

func (l *Live) SetContentLength(length int64) {
	l.SetHeader("Content-Length", strconv.FormatInt(length, 10))
}

func (l *Live) SetLocale(tag language.Tag) {
	l.SetHeader("Content-Language", tag.String())
}

// SetBufferSize changes the buffer size. It has no effect once the response
// is committed or body bytes are buffered.
func (l *Live) SetBufferSize(size int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.committed || len(l.buf) > 0 || size < 0 {
		return
	}
	l.bufferSize = size
}

func (l *Live) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf)+len(p) <= l.bufferSize {
		l.buf = append(l.buf, p...)
		return len(p), nil
	}
	l.commitLocked()
	if err := l.drainLocked(); err != nil {
		return 0, err
	}
	if err := l.writeLocked(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush commits the response and sends any buffered bytes.
func (l *Live) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitLocked()
	if err := l.drainLocked(); err != nil {
		return err
	}
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Reset clears the buffer, status and headers.
func (l *Live) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.committed {
		return ErrCommitted
	}
	h := l.w.Header()
	for k := range h {
		delete(h, k)
	}
	l.status = http.StatusOK
	l.buf = l.buf[:0]
	return nil
}

// Handover moves the uncommitted response onto dst: headers that differ from
// the inherited ones, a status other than 200, and the buffered body. The Live
// is left as it was created. Handover fails with ErrCommitted once the
// response is committed, since part of it has already gone out.
func (l *Live) Handover(dst Sink) error {
	l.mu.Lock()
	if l.committed {
		l.mu.Unlock()
		return ErrCommitted
	}
	ops := l.pendingLocked()
	h := l.w.Header()
	for k := range h {
		delete(h, k)
	}
	for k, v := range l.inherited {
		h[k] = slices.Clone(v)
	}
	l.status = http.StatusOK
	l.buf = l.buf[:0]
	l.mu.Unlock()

	for i := range ops {
		if err := ops[i].Apply(dst); err != nil {
			return err
		}
	}
	return nil
}

func (l *Live) pendingLocked() []Operation {
	h := l.w.Header()
	names := make([]string, 0, len(h))
	for name, values := range h {
		if len(values) > 0 && !slices.Equal(values, l.inherited[name]) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var ops []Operation
	for _, name := range names {
		for i, v := range h[name] {
			kind := KindAddHeader
			if i == 0 {
				kind = KindSetHeader
			}
			ops = append(ops, Operation{Kind: kind, Name: name, Value: v})
		}
	}
	if l.status != http.StatusOK {
		ops = append(ops, Operation{Kind: KindSetStatus, Code: l.status})
	}
	if len(l.buf) > 0 {
		ops = append(ops, Operation{Kind: KindWrite, Data: slices.Clone(l.buf)})
	}
	return ops
}

func (l *Live) ResetBuffer() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.committed {
		return ErrCommitted
	}
	l.buf = l.buf[:0]
	return nil
}

// Close commits the response and sends any buffered bytes. The sink should
// not be used afterwards.
func (l *Live) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitLocked()
	return l.drainLocked()
}

// Committed reports whether the status and headers have been sent.
func (l *Live) Committed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.committed
}

// Status returns the current or committed status code.
func (l *Live) Status() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Written returns the number of body bytes sent to the connection.
func (l *Live) Written() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

func (l *Live) commitLocked() {
	if l.committed {
		return
	}
	l.committed = true
	l.w.WriteHeader(l.status)
}

func (l *Live) drainLocked() error {
	if len(l.buf) == 0 {
		return nil
	}
	err := l.writeLocked(l.buf)
	l.buf = l.buf[:0]
	return err
}

func (l *Live) writeLocked(p []byte) error {
	n, err := l.w.Write(p)
	l.written += int64(n)
	return err
}
