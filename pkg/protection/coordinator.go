package protection

import (
	"net/http"
	"sync"

	"golang.org/x/text/language"

	"mercator-hq/pollgate/pkg/response"
)

// coordinator lets the original request of a hand-off swap its output for the
// live response of a poll.
//
// States: awaiting poll (no offer), poll ready (offer installed), consumed
// (terminal). A poll that gives up withdraws its offer, returning the
// coordinator to awaiting poll.
type coordinator struct {
	mu        sync.Mutex
	offer     *pollOffer
	consumed  bool
	attached  bool
	available chan struct{}

	released    chan struct{}
	releaseOnce sync.Once
}

type pollOffer struct {
	sink       *handoffSink
	taken      chan struct{}
	superseded chan struct{}
}

func newCoordinator() *coordinator {
	return &coordinator{
		available: make(chan struct{}),
		released:  make(chan struct{}),
	}
}

// attach records that the original request is waiting for, or using, a poll.
func (c *coordinator) attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = true
}

// install makes live the current poll offer, superseding any earlier one. It
// returns nil when the coordinator is already consumed.
func (c *coordinator) install(live response.Sink) *pollOffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed {
		return nil
	}
	if c.offer != nil {
		close(c.offer.superseded)
	}
	o := &pollOffer{
		sink:       &handoffSink{live: live},
		taken:      make(chan struct{}),
		superseded: make(chan struct{}),
	}
	c.offer = o
	close(c.available)
	c.available = make(chan struct{})
	return o
}

// consume takes the current offer. With no offer it returns a channel closed
// when the next one is installed. Both results are nil if the coordinator was
// already consumed.
func (c *coordinator) consume() (*handoffSink, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed {
		return nil, nil
	}
	if c.offer == nil {
		return nil, c.available
	}
	c.consumed = true
	close(c.offer.taken)
	return c.offer.sink, nil
}

// withdraw removes o if it is still the current offer. It returns false if o
// was consumed in the meantime.
func (c *coordinator) withdraw(o *pollOffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-o.taken:
		return false
	default:
	}
	if c.offer == o {
		c.offer = nil
	}
	return true
}

func (c *coordinator) release() {
	c.releaseOnce.Do(func() { close(c.released) })
}

func (c *coordinator) isConsumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}

// idle reports whether neither side is using the coordinator.
func (c *coordinator) idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.attached && !c.consumed && c.offer == nil
}

// handoffSink forwards to a poll's live sink until detached. Every body write
// is flushed so the client sees output as it is produced.
type handoffSink struct {
	mu       sync.Mutex
	live     response.Sink
	detached bool
}

var _ response.Sink = (*handoffSink)(nil)

func (s *handoffSink) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
}

func (s *handoffSink) do(fn func(response.Sink) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return response.ErrDetached
	}
	return fn(s.live)
}

func (s *handoffSink) set(fn func(response.Sink)) {
	_ = s.do(func(l response.Sink) error {
		fn(l)
		return nil
	})
}

func (s *handoffSink) SetStatus(code int) {
	s.set(func(l response.Sink) { l.SetStatus(code) })
}

func (s *handoffSink) SendError(code int, msg string) error {
	return s.do(func(l response.Sink) error { return l.SendError(code, msg) })
}

func (s *handoffSink) SendRedirect(location string) error {
	return s.do(func(l response.Sink) error { return l.SendRedirect(location) })
}

func (s *handoffSink) SetHeader(name, value string) {
	s.set(func(l response.Sink) { l.SetHeader(name, value) })
}

func (s *handoffSink) AddHeader(name, value string) {
	s.set(func(l response.Sink) { l.AddHeader(name, value) })
}

func (s *handoffSink) AddCookie(cookie *http.Cookie) {
	s.set(func(l response.Sink) { l.AddCookie(cookie) })
}

func (s *handoffSink) SetContentType(contentType string) {
	s.set(func(l response.Sink) { l.SetContentType(contentType) })
}

func (s *handoffSink) SetContentLength(length int64) {
	s.set(func(l response.Sink) { l.SetContentLength(length) })
}

func (s *handoffSink) SetLocale(tag language.Tag) {
	s.set(func(l response.Sink) { l.SetLocale(tag) })
}

func (s *handoffSink) SetBufferSize(size int) {
	s.set(func(l response.Sink) { l.SetBufferSize(size) })
}

func (s *handoffSink) Write(p []byte) (int, error) {
	var n int
	err := s.do(func(l response.Sink) error {
		var err error
		if n, err = l.Write(p); err != nil {
			return err
		}
		return l.Flush()
	})
	return n, err
}

func (s *handoffSink) Flush() error {
	return s.do(response.Sink.Flush)
}

func (s *handoffSink) Reset() error {
	return s.do(response.Sink.Reset)
}

func (s *handoffSink) ResetBuffer() error {
	return s.do(response.Sink.ResetBuffer)
}
