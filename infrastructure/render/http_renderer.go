package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/pkg/observability"
)

// EngineError is a rejection reported by the layout engine, typically a
// syntax error in the diagram source.
type EngineError struct {
	StatusCode int
	Message    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("render engine rejected diagram (status %d): %s", e.StatusCode, e.Message)
}

// ErrEngineUnavailable is returned while the circuit breaker is open.
var ErrEngineUnavailable = errors.New("render engine unavailable")

// HTTPRendererConfig configures the engine endpoint and its breaker.
type HTTPRendererConfig struct {
	// Endpoint is the engine base URL; source is POSTed to {Endpoint}/mermaid/svg.
	Endpoint     string
	Timeout      time.Duration
	MaxBodyBytes int64

	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold float64
	BreakerMinRequests      uint32
}

// DefaultHTTPRendererConfig returns defaults for a local engine.
func DefaultHTTPRendererConfig(endpoint string) HTTPRendererConfig {
	return HTTPRendererConfig{
		Endpoint:                endpoint,
		Timeout:                 10 * time.Second,
		MaxBodyBytes:            8 << 20,
		BreakerMaxRequests:      5,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          60 * time.Second,
		BreakerFailureThreshold: 0.8,
		BreakerMinRequests:      5,
	}
}

// HTTPRenderer talks to a Kroki-compatible engine over HTTP.
type HTTPRenderer struct {
	client   *http.Client
	url      string
	maxBody  int64
	breaker  *gobreaker.CircuitBreaker
	tracer   *observability.Tracer
	recorder observability.Recorder
	logger   *zap.Logger
}

var _ ports.Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer creates the adapter. tracer may be nil.
func NewHTTPRenderer(cfg HTTPRendererConfig, tracer *observability.Tracer, recorder observability.Recorder, logger *zap.Logger) *HTTPRenderer {
	if recorder == nil {
		recorder = observability.NopRecorder{}
	}
	r := &HTTPRenderer{
		client:   &http.Client{Timeout: cfg.Timeout},
		url:      strings.TrimRight(cfg.Endpoint, "/") + "/mermaid/svg",
		maxBody:  cfg.MaxBodyBytes,
		tracer:   tracer,
		recorder: recorder,
		logger:   logger,
	}
	if r.maxBody <= 0 {
		r.maxBody = 8 << 20
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "render-engine",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A rejected diagram is the caller's fault, not an engine outage.
		IsSuccessful: func(err error) bool {
			var engineErr *EngineError
			if errors.As(err, &engineErr) {
				return engineErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})
	return r
}

// Render posts source to the engine and parses the returned SVG.
func (r *HTTPRenderer) Render(ctx context.Context, source string) (ports.Markup, error) {
	start := time.Now()
	var svg string
	err := r.tracer.Span(ctx, "render.engine", func(ctx context.Context) error {
		out, err := r.breaker.Execute(func() (interface{}, error) {
			return r.post(ctx, source)
		})
		if err != nil {
			return err
		}
		svg = out.(string)
		return nil
	})
	r.recorder.ObserveRender(time.Since(start), err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if err != nil {
		return nil, err
	}

	doc, err := ParseMarkup(svg)
	if err != nil {
		return nil, fmt.Errorf("engine returned unusable markup: %w", err)
	}
	return doc, nil
}

func (r *HTTPRenderer) post(ctx context.Context, source string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "image/svg+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call render engine: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return "", fmt.Errorf("read render response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Debug("Render engine rejected diagram",
			zap.Int("status", resp.StatusCode),
			zap.Int("source_bytes", len(source)),
		)
		return "", &EngineError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return string(body), nil
}

// State reports the breaker state for health checks.
func (r *HTTPRenderer) State() string {
	return r.breaker.State().String()
}
