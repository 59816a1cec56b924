package response

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLive_BuffersUntilClose(t *testing.T) {
	w := httptest.NewRecorder()
	live := NewLive(w)

	live.SetStatus(http.StatusCreated)
	live.SetContentType("text/plain")
	live.SetLocale(language.BritishEnglish)
	_, err := live.Write([]byte("hello"))
	require.NoError(t, err)

	assert.False(t, live.Committed())
	assert.False(t, w.Flushed)

	// Status can still change while buffered.
	live.SetStatus(http.StatusAccepted)
	require.NoError(t, live.Close())

	assert.True(t, live.Committed())
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "en-GB", w.Header().Get("Content-Language"))
	assert.Equal(t, int64(5), live.Written())
}

func TestLive_CommitsOnOverflow(t *testing.T) {
	w := httptest.NewRecorder()
	live := NewLive(w)
	live.SetBufferSize(4)

	_, err := live.Write([]byte("abc"))
	require.NoError(t, err)
	assert.False(t, live.Committed())

	_, err = live.Write([]byte("defg"))
	require.NoError(t, err)
	assert.True(t, live.Committed())
	assert.Equal(t, "abcdefg", w.Body.String())

	live.SetStatus(http.StatusTeapot)
	live.SetHeader("X-Late", "1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Late"))
}

func TestLive_Flush(t *testing.T) {
	w := httptest.NewRecorder()
	live := NewLive(w)

	_, _ = live.Write([]byte("partial"))
	require.NoError(t, live.Flush())

	assert.True(t, w.Flushed)
	assert.Equal(t, "partial", w.Body.String())
	assert.ErrorIs(t, live.Reset(), ErrCommitted)
	assert.ErrorIs(t, live.ResetBuffer(), ErrCommitted)
}

func TestLive_ResetBeforeCommit(t *testing.T) {
	w := httptest.NewRecorder()
	live := NewLive(w)

	live.SetStatus(http.StatusBadRequest)
	live.SetHeader("X-Gone", "1")
	_, _ = live.Write([]byte("discard me"))
	require.NoError(t, live.Reset())

	_, _ = live.Write([]byte("kept"))
	require.NoError(t, live.Close())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Gone"))
	assert.Equal(t, "kept", w.Body.String())
}

func TestLive_ResetBufferKeepsHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	live := NewLive(w)

	live.SetHeader("X-Kept", "1")
	_, _ = live.Write([]byte("discard me"))
	require.NoError(t, live.ResetBuffer())
	require.NoError(t, live.Close())

	assert.Equal(t, "1", w.Header().Get("X-Kept"))
	assert.Empty(t, w.Body.String())
}

func TestLive_SendError(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		msg      string
		wantBody string
	}{
		{name: "with message", code: http.StatusServiceUnavailable, msg: "try later", wantBody: "try later"},
		{name: "status text", code: http.StatusNotFound, wantBody: "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			live := NewLive(w)
			_, _ = live.Write([]byte("buffered"))

			require.NoError(t, live.SendError(tt.code, tt.msg))
			require.NoError(t, live.Close())

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			assert.ErrorIs(t, live.SendError(500, ""), ErrCommitted)
		})
	}
}

func TestLive_SendRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	live := NewLive(w)

	require.NoError(t, live.SendRedirect("/next"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/next", w.Header().Get("Location"))
	assert.ErrorIs(t, live.SendRedirect("/again"), ErrCommitted)
}

func TestLive_Cookies(t *testing.T) {
	w := httptest.NewRecorder()
	live := NewLive(w)

	live.AddCookie(&http.Cookie{Name: "a", Value: "1"})
	live.AddCookie(&http.Cookie{Name: "b", Value: "2"})
	live.AddCookie(nil)
	require.NoError(t, live.Close())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "a", cookies[0].Name)
	assert.Equal(t, "b", cookies[1].Name)
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (f failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestLive_WriteErrorSurfaces(t *testing.T) {
	live := NewLive(failingWriter{httptest.NewRecorder()})
	live.SetBufferSize(0)

	_, err := live.Write([]byte("x"))
	assert.EqualError(t, err, "connection reset")
}

func TestLive_ReplayMatchesDirectOutput(t *testing.T) {
	handler := func(s Sink) {
		s.SetStatus(http.StatusOK)
		s.SetContentType("application/octet-stream")
		s.SetContentLength(4)
		b := []byte{0, 1, 2, 3}
		_, _ = s.Write(b[0:2])
		_, _ = s.Write(b[2:4])
	}

	direct := httptest.NewRecorder()
	live := NewLive(direct)
	handler(live)
	require.NoError(t, live.Close())

	rec := NewRecorder()
	handler(rec)
	replayed := httptest.NewRecorder()
	replayLive := NewLive(replayed)
	require.NoError(t, rec.Seal().Replay(replayLive))
	require.NoError(t, replayLive.Close())

	assert.Equal(t, direct.Code, replayed.Code)
	assert.Equal(t, direct.Header(), replayed.Header())
	assert.True(t, bytes.Equal(direct.Body.Bytes(), replayed.Body.Bytes()))
}

func TestLive_Handover(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-ID", "outer")
	live := NewLive(w)

	live.SetContentType("text/plain")
	live.AddHeader("Vary", "Accept")
	live.AddHeader("Vary", "Origin")
	live.SetStatus(http.StatusAccepted)
	_, err := live.Write([]byte("hello "))
	require.NoError(t, err)

	rec := NewRecorder()
	require.NoError(t, live.Handover(rec))
	_, err = rec.Write([]byte("world"))
	require.NoError(t, err)

	dst := httptest.NewRecorder()
	out := NewLive(dst)
	require.NoError(t, rec.Seal().Replay(out))
	require.NoError(t, out.Close())

	assert.Equal(t, http.StatusAccepted, dst.Code)
	assert.Equal(t, "text/plain", dst.Header().Get("Content-Type"))
	assert.Equal(t, []string{"Accept", "Origin"}, dst.Header().Values("Vary"))
	assert.Empty(t, dst.Header().Get("X-Request-ID"), "inherited headers stay behind")
	assert.Equal(t, "hello world", dst.Body.String())

	// The live response is back to its initial state.
	assert.False(t, live.Committed())
	assert.Equal(t, http.StatusOK, live.Status())
	require.NoError(t, live.Close())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Type"))
	assert.Equal(t, "outer", w.Header().Get("X-Request-ID"))
}

func TestLive_HandoverAfterCommit(t *testing.T) {
	live := NewLive(httptest.NewRecorder())
	require.NoError(t, live.Flush())

	rec := NewRecorder()
	assert.ErrorIs(t, live.Handover(rec), ErrCommitted)
	assert.Zero(t, rec.Len())
}

func TestLive_HandoverUntouched(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-ID", "outer")
	live := NewLive(w)

	rec := NewRecorder()
	require.NoError(t, live.Handover(rec))
	assert.Zero(t, rec.Len())
}
