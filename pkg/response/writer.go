package response

import (
	"net/http"
	"sort"
	"strconv"
)

// Writer adapts a Sink to http.ResponseWriter.
//
// Header mutations are collected in a local header map and translated into
// Sink operations when the header is written, the same point at which
// net/http freezes the header map.
type Writer struct {
	sink        Sink
	header      http.Header
	wroteHeader bool
	status      int
	err         error
}

var (
	_ http.ResponseWriter = (*Writer)(nil)
	_ http.Flusher        = (*Writer)(nil)
)

// NewWriter returns a Writer issuing operations on sink.
func NewWriter(sink Sink) *Writer {
	return &Writer{sink: sink, header: make(http.Header)}
}

func (w *Writer) Header() http.Header {
	return w.header
}

func (w *Writer) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code

	names := make([]string, 0, len(w.header))
	for name := range w.header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := w.header[name]
		switch {
		case len(values) == 0:
			continue
		case name == "Content-Type" && len(values) == 1:
			w.sink.SetContentType(values[0])
			continue
		case name == "Content-Length" && len(values) == 1:
			if n, err := strconv.ParseInt(values[0], 10, 64); err == nil {
				w.sink.SetContentLength(n)
				continue
			}
		}
		w.sink.SetHeader(name, values[0])
		for _, v := range values[1:] {
			w.sink.AddHeader(name, v)
		}
	}
	w.sink.SetStatus(code)
}

func (w *Writer) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.sink.Write(p)
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}

func (w *Writer) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if err := w.sink.Flush(); err != nil && w.err == nil {
		w.err = err
	}
}

// Status returns the status passed to WriteHeader, or zero.
func (w *Writer) Status() int {
	return w.status
}

// WroteHeader reports whether the header has been written.
func (w *Writer) WroteHeader() bool {
	return w.wroteHeader
}

// Err returns the first error the sink reported on Write or Flush.
func (w *Writer) Err() error {
	return w.err
}

// Sink returns the underlying sink.
func (w *Writer) Sink() Sink {
	return w.sink
}
