// Package client implements the client side of gateway timeout protection.
//
// A Client tags each request with a fresh correlation id in the initial
// request header. When the answer is a gateway timeout (504), or the server's
// interim 204 carrying the poll header, the client repeats the request with
// the poll header instead until it receives the final response:
//
//	c := client.New(client.WithMaxWait(2 * time.Minute))
//	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:8080/slow", nil)
//	resp, err := c.Do(req)
//	if errors.Is(err, client.ErrGaveUp) {
//	    // no final response within two minutes
//	}
//
// With the hand-off strategy the original request stays open until a poll
// collects the response. Behind a gateway that times the original out this
// happens on its own; otherwise WithPollAfter makes the client start polling
// while the original is still open.
package client
