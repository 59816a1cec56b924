// Package response provides the response sink abstraction used by timeout
// protection.
//
// A Sink is the narrow set of operations a handler can perform on an HTTP
// response: status, headers, cookies, buffer control and body writes. Several
// implementations exist:
//
//   - Live: buffered, servlet-like output to an http.ResponseWriter
//   - Recorder: captures operations into a replayable Recording
//   - Duplicate: fans every operation out to several sinks
//   - Meter: counts operations and bytes, discarding the output
//
// Handlers never see a Sink directly. They write to a Writer, which adapts the
// standard http.ResponseWriter interface onto whatever Sink is underneath:
//
//	rec := response.NewRecorder()
//	handler.ServeHTTP(response.NewWriter(rec), req)
//	recording := rec.Seal()
//
//	live := response.NewLive(w)
//	if err := recording.Replay(live); err != nil {
//		// ...
//	}
//	live.Close()
//
// # Coalescing
//
// The Recorder merges contiguous body writes into a single Write operation, so
// a handler writing 2, 2 and 4 bytes replays as one 8 byte write. Writes are
// never reordered relative to other operations.
package response
