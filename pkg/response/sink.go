package response

import (
	"errors"
	"net/http"

	"golang.org/x/text/language"
)

var (
	// ErrSealed is returned when writing to a Recorder after Seal.
	ErrSealed = errors.New("response: recording is sealed")

	// ErrCommitted is returned by operations that require an uncommitted
	// response, such as Reset or SendError, once status and headers are sent.
	ErrCommitted = errors.New("response: already committed")

	// ErrDetached is returned when writing to a sink that has been detached
	// from its underlying connection.
	ErrDetached = errors.New("response: sink detached")
)

// Sink is the set of operations that mutate an HTTP response.
//
// Setters have no error return: like their net/http counterparts they are
// silently ignored once the response can no longer change.
type Sink interface {
	SetStatus(code int)
	SendError(code int, msg string) error
	SendRedirect(location string) error
	SetHeader(name, value string)
	AddHeader(name, value string)
	AddCookie(cookie *http.Cookie)
	SetContentType(contentType string)
	SetContentLength(length int64)
	SetLocale(tag language.Tag)
	SetBufferSize(size int)
	Write(p []byte) (int, error)
	Flush() error
	Reset() error
	ResetBuffer() error
}

// Discard is a Sink on which all operations succeed without effect.
var Discard Sink = discard{}

type discard struct{}

func (discard) SetStatus(int)               {}
func (discard) SendError(int, string) error { return nil }
func (discard) SendRedirect(string) error   { return nil }
func (discard) SetHeader(string, string)    {}
func (discard) AddHeader(string, string)    {}
func (discard) AddCookie(*http.Cookie)      {}
func (discard) SetContentType(string)       {}
func (discard) SetContentLength(int64)      {}
func (discard) SetLocale(language.Tag)      {}
func (discard) SetBufferSize(int)           {}
func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) Flush() error                { return nil }
func (discard) Reset() error                { return nil }
func (discard) ResetBuffer() error          { return nil }
