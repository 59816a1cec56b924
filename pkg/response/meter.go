package response

import (
	"net/http"
	"sync/atomic"

	"golang.org/x/text/language"
)

// Meter is a Sink that counts operations and body bytes and discards
// everything else. It is typically combined with another sink through
// Duplicate.
type Meter struct {
	ops    atomic.Int64
	bytes  atomic.Int64
	status atomic.Int64
}

var _ Sink = (*Meter)(nil)

func (m *Meter) SetStatus(code int) {
	m.ops.Add(1)
	m.status.Store(int64(code))
}

func (m *Meter) SendError(code int, _ string) error {
	m.ops.Add(1)
	m.status.Store(int64(code))
	return nil
}

func (m *Meter) SendRedirect(string) error {
	m.ops.Add(1)
	m.status.Store(http.StatusFound)
	return nil
}

func (m *Meter) SetHeader(string, string) { m.ops.Add(1) }
func (m *Meter) AddHeader(string, string) { m.ops.Add(1) }
func (m *Meter) AddCookie(*http.Cookie)   { m.ops.Add(1) }
func (m *Meter) SetContentType(string)    { m.ops.Add(1) }
func (m *Meter) SetContentLength(int64)   { m.ops.Add(1) }
func (m *Meter) SetLocale(language.Tag)   { m.ops.Add(1) }
func (m *Meter) SetBufferSize(int)        { m.ops.Add(1) }
func (m *Meter) Flush() error             { m.ops.Add(1); return nil }
func (m *Meter) Reset() error             { m.ops.Add(1); return nil }
func (m *Meter) ResetBuffer() error       { m.ops.Add(1); return nil }

func (m *Meter) Write(p []byte) (int, error) {
	m.ops.Add(1)
	m.bytes.Add(int64(len(p)))
	return len(p), nil
}

// Ops returns the number of operations seen.
func (m *Meter) Ops() int64 { return m.ops.Load() }

// Bytes returns the number of body bytes seen.
func (m *Meter) Bytes() int64 { return m.bytes.Load() }

// Status returns the last status seen, or zero.
func (m *Meter) Status() int { return int(m.status.Load()) }
