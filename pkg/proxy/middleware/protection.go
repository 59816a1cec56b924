package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/protection"
	"mercator-hq/pollgate/pkg/proxy/types"
	"mercator-hq/pollgate/pkg/response"
	"mercator-hq/pollgate/pkg/telemetry/logging"
	"mercator-hq/pollgate/pkg/telemetry/metrics"
	"mercator-hq/pollgate/pkg/telemetry/tracing"
)

// Protection modes, used as the mode label in metrics, logs and spans.
const (
	ModeInitial     = "initial"
	ModePoll        = "poll"
	ModeUnprotected = "unprotected"
)

// ProtectionConfig contains configuration for the protection middleware.
type ProtectionConfig struct {
	// Enabled controls whether correlation headers are acted on.
	Enabled bool

	// InitialRequestHeader carries the correlation id of an original request.
	InitialRequestHeader string

	// PollHeader carries the correlation id of a poll, and is set on interim
	// 204 responses.
	PollHeader string
}

// NewProtectionConfig builds the middleware configuration from the
// protection section.
func NewProtectionConfig(cfg config.ProtectionConfig) *ProtectionConfig {
	return &ProtectionConfig{
		Enabled:              cfg.Enabled,
		InitialRequestHeader: cfg.InitialRequestHeader,
		PollHeader:           cfg.PollHeader,
	}
}

// ProtectionOption configures the protection middleware.
type ProtectionOption func(*protector)

// WithMetrics records request and poll metrics on c.
func WithMetrics(c *metrics.Collector) ProtectionOption {
	return func(p *protector) { p.metrics = c }
}

// WithTracer records protection spans on t.
func WithTracer(t *tracing.Tracer) ProtectionOption {
	return func(p *protector) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithProtectionLogger sets the logger. The default is slog.Default().
func WithProtectionLogger(l *slog.Logger) ProtectionOption {
	return func(p *protector) {
		if l != nil {
			p.logger = l
		}
	}
}

type protector struct {
	strategy protection.Strategy
	config   *ProtectionConfig
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
}

// ProtectionMiddleware protects slow handlers from gateway timeouts.
//
// A request carrying the initial request header is an original request. Its
// handler runs detached from the client connection; if it is still running
// after the strategy's threshold, its output is diverted away from the
// original connection, which receives 204 No Content with the poll header
// once the handler returns (if nothing was committed to it before).
//
// A request carrying the poll header is a poll. It is answered with the
// diverted response when available, with 204 and the poll header when the
// client should poll again, or with 404 when the id was already delivered.
//
// Requests carrying neither header pass through.
//
// Example usage:
//
//	strategy, _ := protection.New("replay", protection.DefaultTimings())
//	handler = ProtectionMiddleware(strategy, cfg, WithMetrics(collector))(handler)
func ProtectionMiddleware(strategy protection.Strategy, cfg *ProtectionConfig, opts ...ProtectionOption) func(http.Handler) http.Handler {
	p := &protector{
		strategy: strategy,
		config:   cfg,
		tracer:   tracing.Noop(),
		logger:   slog.Default().With("component", "middleware.protection"),
	}
	for _, opt := range opts {
		opt(p)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !p.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			switch mode, id := classify(r, p.config); mode {
			case ModePoll:
				p.servePoll(w, r, id)
			case ModeInitial:
				p.serveOriginal(next, w, r, id)
			default:
				start := time.Now()
				rec := recordStatus(w)
				next.ServeHTTP(rec, r)
				p.recordRequest(ModeUnprotected, rec.status, time.Since(start))
			}
		})
	}
}

func (p *protector) serveOriginal(next http.Handler, w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	base := w.Header().Clone()

	ctx := logging.WithMode(logging.WithCorrelationID(r.Context(), id), ModeInitial)
	ctx, span := p.tracer.Start(ctx, "protection.original")
	defer span.End()
	tracing.SetProtectionAttributes(span, p.strategy.Name(), ModeInitial, id)

	// The gateway hangs up on slow requests; the handler keeps going so its
	// output can be collected by a poll.
	ctx = context.WithoutCancel(ctx)

	live := response.NewLive(w)
	monitor := p.strategy.Start(ctx, id)
	sink := &switchingSink{live: live, monitor: monitor}

	defer func() {
		rec := recover()
		if rec != nil && rec != http.ErrAbortHandler {
			p.logger.ErrorContext(ctx, "panic in protected handler",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			_ = sink.SendError(http.StatusInternalServerError, "")
		}

		p.finishOriginal(ctx, span, live, base, id, monitor)
		p.recordRequest(ModeInitial, live.Status(), time.Since(start))

		if rec == http.ErrAbortHandler {
			panic(rec)
		}
	}()

	rw := response.NewWriter(sink)
	next.ServeHTTP(rw, r.WithContext(ctx))

	// A handler that never writes still answers 200; route it through the
	// sink so a diverted request gets a recording or hand-off.
	if !rw.WroteHeader() {
		rw.WriteHeader(http.StatusOK)
	}
}

func (p *protector) finishOriginal(ctx context.Context, span trace.Span, live *response.Live, base http.Header, id string, monitor protection.Monitor) {
	err := p.strategy.Finish(ctx, id, monitor)
	switch {
	case errors.Is(err, protection.ErrPollNeverArrived):
		tracing.SetError(span, err)
		p.logger.WarnContext(ctx, "response not collected", "error", err)
		if !live.Committed() {
			sendJSONError(live, base, types.NewPollNeverArrivedError())
		}

	case err != nil:
		tracing.SetError(span, err)
		p.logger.ErrorContext(ctx, "failed to finish protected request", "error", err)
		if !live.Committed() {
			sendJSONError(live, base, types.NewServerError("Failed to complete the request"))
		}

	case monitor.Monitored():
		tracing.MarkDiverted(span)
		if p.metrics != nil {
			p.metrics.RecordDiversion(p.strategy.Name())
		}
		p.logger.DebugContext(ctx, "response diverted to poll")
		if !live.Committed() {
			p.sendRetry(live, base, id)
		}
	}

	if err := live.Close(); err != nil {
		p.logger.DebugContext(ctx, "original connection closed early", "error", err)
	}
}

func (p *protector) servePoll(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	base := w.Header().Clone()

	ctx := logging.WithMode(logging.WithCorrelationID(r.Context(), id), ModePoll)
	ctx, span := p.tracer.Start(ctx, "protection.poll")
	defer span.End()
	tracing.SetProtectionAttributes(span, p.strategy.Name(), ModePoll, id)

	live := response.NewLive(w)
	outcome, err := p.strategy.Poll(ctx, id, live)
	wait := time.Since(start)
	tracing.SetOutcome(span, outcome.String())

	if err != nil {
		tracing.SetError(span, err)
		p.logger.WarnContext(ctx, "poll delivery failed", "outcome", outcome.String(), "error", err)
	}

	switch {
	case outcome == protection.Delivered:
		span.AddEvent(tracing.EventDelivered)
	case err != nil:
		if !live.Committed() {
			sendJSONError(live, base, types.NewServerError("Failed to deliver the response"))
		}
	case outcome == protection.RetryLater:
		span.AddEvent(tracing.EventRetry)
		p.sendRetry(live, base, id)
	default:
		sendJSONError(live, base, types.NewUnknownCorrelationIDError(p.config.PollHeader))
	}

	if err := live.Close(); err != nil {
		p.logger.DebugContext(ctx, "poll connection closed early", "error", err)
	}

	if p.metrics != nil {
		p.metrics.RecordPoll(p.strategy.Name(), outcome.String(), wait)
	}
	p.recordRequest(ModePoll, live.Status(), wait)
}

// sendRetry answers with 204 and the poll header, telling the client to poll
// again with id.
func (p *protector) sendRetry(live *response.Live, base http.Header, id string) {
	if err := resetTo(live, base); err != nil {
		return
	}
	live.SetHeader(p.config.PollHeader, id)
	live.SetStatus(http.StatusNoContent)
}

func (p *protector) recordRequest(mode string, status int, d time.Duration) {
	if p.metrics != nil {
		p.metrics.RecordRequest(p.strategy.Name(), mode, status, d)
	}
}

// resetTo clears whatever the handler left in the uncommitted live response
// and restores the headers set by outer middleware.
func resetTo(live *response.Live, base http.Header) error {
	if err := live.Reset(); err != nil {
		return err
	}
	for name, values := range base {
		for i, v := range values {
			if i == 0 {
				live.SetHeader(name, v)
			} else {
				live.AddHeader(name, v)
			}
		}
	}
	return nil
}

func sendJSONError(live *response.Live, base http.Header, errResp *types.ErrorResponse) {
	if err := resetTo(live, base); err != nil {
		return
	}
	body, err := json.Marshal(errResp)
	if err != nil {
		return
	}
	live.SetContentType("application/json")
	live.SetStatus(errResp.Error.HTTPStatusCode())
	_, _ = live.Write(append(body, '\n'))
}

// switchingSink sends each operation to the live response until the monitor
// hands out a replacement sink, and to the replacement from then on. Whatever
// the live response still holds uncommitted moves to the replacement at the
// switch. A live response that committed before the switch keeps receiving
// the output.
type switchingSink struct {
	live     *response.Live
	monitor  protection.Monitor
	switched bool
}

var _ response.Sink = (*switchingSink)(nil)

func (s *switchingSink) target() (response.Sink, error) {
	if !s.switched && s.live.Committed() {
		return s.live, nil
	}
	sink, err := s.monitor.Sink()
	if err != nil {
		return nil, err
	}
	if sink == nil {
		return s.live, nil
	}
	if !s.switched {
		s.switched = true
		if err := s.live.Handover(sink); err != nil {
			return nil, err
		}
	}
	return sink, nil
}

func (s *switchingSink) set(fn func(response.Sink)) {
	if t, err := s.target(); err == nil {
		fn(t)
	}
}

func (s *switchingSink) SetStatus(code int) {
	s.set(func(t response.Sink) { t.SetStatus(code) })
}

func (s *switchingSink) SendError(code int, msg string) error {
	t, err := s.target()
	if err != nil {
		return err
	}
	return t.SendError(code, msg)
}

func (s *switchingSink) SendRedirect(location string) error {
	t, err := s.target()
	if err != nil {
		return err
	}
	return t.SendRedirect(location)
}

func (s *switchingSink) SetHeader(name, value string) {
	s.set(func(t response.Sink) { t.SetHeader(name, value) })
}

func (s *switchingSink) AddHeader(name, value string) {
	s.set(func(t response.Sink) { t.AddHeader(name, value) })
}

func (s *switchingSink) AddCookie(cookie *http.Cookie) {
	s.set(func(t response.Sink) { t.AddCookie(cookie) })
}

func (s *switchingSink) SetContentType(contentType string) {
	s.set(func(t response.Sink) { t.SetContentType(contentType) })
}

func (s *switchingSink) SetContentLength(length int64) {
	s.set(func(t response.Sink) { t.SetContentLength(length) })
}

func (s *switchingSink) SetLocale(tag language.Tag) {
	s.set(func(t response.Sink) { t.SetLocale(tag) })
}

func (s *switchingSink) SetBufferSize(size int) {
	s.set(func(t response.Sink) { t.SetBufferSize(size) })
}

func (s *switchingSink) Write(p []byte) (int, error) {
	t, err := s.target()
	if err != nil {
		return 0, err
	}
	return t.Write(p)
}

func (s *switchingSink) Flush() error {
	t, err := s.target()
	if err != nil {
		return err
	}
	return t.Flush()
}

func (s *switchingSink) Reset() error {
	t, err := s.target()
	if err != nil {
		return err
	}
	return t.Reset()
}

func (s *switchingSink) ResetBuffer() error {
	t, err := s.target()
	if err != nil {
		return err
	}
	return t.ResetBuffer()
}
