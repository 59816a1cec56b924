package response

import (
	"fmt"
	"net/http"

	"golang.org/x/text/language"
)

// Kind identifies the Sink method an Operation replays.
type Kind uint8

const (
	KindSetStatus Kind = iota
	KindSendError
	KindSendRedirect
	KindSetHeader
	KindAddHeader
	KindAddCookie
	KindSetContentType
	KindSetContentLength
	KindSetLocale
	KindSetBufferSize
	KindWrite
	KindFlush
	KindReset
	KindResetBuffer

	kindCount
)

var kindNames = [kindCount]string{
	KindSetStatus:        "set_status",
	KindSendError:        "send_error",
	KindSendRedirect:     "send_redirect",
	KindSetHeader:        "set_header",
	KindAddHeader:        "add_header",
	KindAddCookie:        "add_cookie",
	KindSetContentType:   "set_content_type",
	KindSetContentLength: "set_content_length",
	KindSetLocale:        "set_locale",
	KindSetBufferSize:    "set_buffer_size",
	KindWrite:            "write",
	KindFlush:            "flush",
	KindReset:            "reset",
	KindResetBuffer:      "reset_buffer",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Operation is one recorded call on a Sink. Only the fields relevant to Kind
// are set.
type Operation struct {
	Kind Kind

	// Code is the status for SetStatus and SendError.
	Code int

	// Name and Value carry header operations. Value also holds the message
	// for SendError, the location for SendRedirect and the content type for
	// SetContentType.
	Name  string
	Value string

	Cookie *http.Cookie
	Locale language.Tag

	// Size is the content length or buffer size.
	Size int64

	// Data is the accumulated body for a Write.
	Data []byte
}

type applyFunc func(s Sink, op *Operation) error

var dispatch = [kindCount]applyFunc{
	KindSetStatus: func(s Sink, op *Operation) error {
		s.SetStatus(op.Code)
		return nil
	},
	KindSendError: func(s Sink, op *Operation) error {
		return s.SendError(op.Code, op.Value)
	},
	KindSendRedirect: func(s Sink, op *Operation) error {
		return s.SendRedirect(op.Value)
	},
	KindSetHeader: func(s Sink, op *Operation) error {
		s.SetHeader(op.Name, op.Value)
		return nil
	},
	KindAddHeader: func(s Sink, op *Operation) error {
		s.AddHeader(op.Name, op.Value)
		return nil
	},
	KindAddCookie: func(s Sink, op *Operation) error {
		s.AddCookie(op.Cookie)
		return nil
	},
	KindSetContentType: func(s Sink, op *Operation) error {
		s.SetContentType(op.Value)
		return nil
	},
	KindSetContentLength: func(s Sink, op *Operation) error {
		s.SetContentLength(op.Size)
		return nil
	},
	KindSetLocale: func(s Sink, op *Operation) error {
		s.SetLocale(op.Locale)
		return nil
	},
	KindSetBufferSize: func(s Sink, op *Operation) error {
		s.SetBufferSize(int(op.Size))
		return nil
	},
	KindWrite: func(s Sink, op *Operation) error {
		_, err := s.Write(op.Data)
		return err
	},
	KindFlush: func(s Sink, _ *Operation) error {
		return s.Flush()
	},
	KindReset: func(s Sink, _ *Operation) error {
		return s.Reset()
	},
	KindResetBuffer: func(s Sink, _ *Operation) error {
		return s.ResetBuffer()
	},
}

// Apply performs the operation on s.
func (op *Operation) Apply(s Sink) error {
	if op.Kind >= kindCount {
		return fmt.Errorf("response: unknown operation %s", op.Kind)
	}
	return dispatch[op.Kind](s, op)
}

func (op Operation) clone() Operation {
	if op.Data != nil {
		op.Data = append([]byte(nil), op.Data...)
	}
	if op.Cookie != nil {
		c := *op.Cookie
		op.Cookie = &c
	}
	return op
}
