package response

import (
	"errors"
	"net/http"

	"golang.org/x/text/language"
)

type duplicate struct {
	targets []Sink
}

// Duplicate returns a Sink that performs every operation on each target in
// order. Errors from all targets are joined. Write reports the byte count of
// the first target.
func Duplicate(targets ...Sink) Sink {
	ts := make([]Sink, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			ts = append(ts, t)
		}
	}
	return &duplicate{targets: ts}
}

func (d *duplicate) each(fn func(Sink) error) error {
	var errs []error
	for _, t := range d.targets {
		if err := fn(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *duplicate) SetStatus(code int) {
	for _, t := range d.targets {
		t.SetStatus(code)
	}
}

func (d *duplicate) SendError(code int, msg string) error {
	return d.each(func(s Sink) error { return s.SendError(code, msg) })
}

func (d *duplicate) SendRedirect(location string) error {
	return d.each(func(s Sink) error { return s.SendRedirect(location) })
}

func (d *duplicate) SetHeader(name, value string) {
	for _, t := range d.targets {
		t.SetHeader(name, value)
	}
}

func (d *duplicate) AddHeader(name, value string) {
	for _, t := range d.targets {
		t.AddHeader(name, value)
	}
}

func (d *duplicate) AddCookie(cookie *http.Cookie) {
	for _, t := range d.targets {
		t.AddCookie(cookie)
	}
}

func (d *duplicate) SetContentType(contentType string) {
	for _, t := range d.targets {
		t.SetContentType(contentType)
	}
}

func (d *duplicate) SetContentLength(length int64) {
	for _, t := range d.targets {
		t.SetContentLength(length)
	}
}

func (d *duplicate) SetLocale(tag language.Tag) {
	for _, t := range d.targets {
		t.SetLocale(tag)
	}
}

func (d *duplicate) SetBufferSize(size int) {
	for _, t := range d.targets {
		t.SetBufferSize(size)
	}
}

func (d *duplicate) Write(p []byte) (int, error) {
	written := len(p)
	var errs []error
	for i, t := range d.targets {
		n, err := t.Write(p)
		if i == 0 {
			written = n
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return written, errors.Join(errs...)
}

func (d *duplicate) Flush() error {
	return d.each(Sink.Flush)
}

func (d *duplicate) Reset() error {
	return d.each(Sink.Reset)
}

func (d *duplicate) ResetBuffer() error {
	return d.each(Sink.ResetBuffer)
}
