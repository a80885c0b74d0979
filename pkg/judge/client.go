package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sotest",
		Subsystem: "judge",
		Name:      "dispatch_duration_seconds",
		Help:      "Duration of synchronous judge submissions",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"outcome"})

	dispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sotest",
		Subsystem: "judge",
		Name:      "dispatch_failures_total",
		Help:      "Number of judge submissions that did not yield a harness report",
	}, []string{"reason"})
)

// ErrUnavailable indicates the judge could not produce a usable verdict. It is
// an infrastructure fault and never a grading outcome; callers may retry.
var ErrUnavailable = errors.New("judge unavailable")

// Dispatcher sends a packaged archive to the judge and waits for its report.
type Dispatcher interface {
	Dispatch(ctx context.Context, archive []byte) (Report, error)
}

// Config groups judge client configuration values.
type Config struct {
	BaseURL    string
	LanguageID int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to a Judge0-compatible submission endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

type submissionRequest struct {
	AdditionalFiles string `json:"additional_files"`
	LanguageID      int    `json:"language_id"`
}

type submissionResponse struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

// NewClient constructs a judge client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("judge base url is required")
	}
	if cfg.LanguageID <= 0 {
		return nil, fmt.Errorf("judge language id is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		tracer: otel.Tracer("github.com/sotesting/sotesting-api/pkg/judge"),
		logger: logger.With().Str("component", "judge_client").Logger(),
	}, nil
}

// Dispatch submits the archive as additional files and blocks until the judge
// finishes running it or the configured timeout elapses.
func (c *Client) Dispatch(parent context.Context, archive []byte) (Report, error) {
	ctx, span := c.tracer.Start(parent, "judge.dispatch", trace.WithAttributes(
		attribute.Int("judge.language_id", c.cfg.LanguageID),
		attribute.Int("judge.archive_bytes", len(archive)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	report, reason, err := c.dispatch(ctx, archive)
	duration := time.Since(start)

	if err != nil {
		dispatchDuration.WithLabelValues("failed").Observe(duration.Seconds())
		dispatchFailures.WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		c.logger.Warn().Err(err).Str("reason", reason).Dur("duration", duration).Msg("judge dispatch failed")
		return Report{}, err
	}

	dispatchDuration.WithLabelValues("ok").Observe(duration.Seconds())
	span.SetAttributes(attribute.Int("judge.tests", len(report.Tests)))
	return report, nil
}

func (c *Client) dispatch(ctx context.Context, archive []byte) (Report, string, error) {
	payload, err := json.Marshal(submissionRequest{
		AdditionalFiles: base64.StdEncoding.EncodeToString(archive),
		LanguageID:      c.cfg.LanguageID,
	})
	if err != nil {
		return Report{}, "encode", fmt.Errorf("%w: encode submission: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/submissions?wait=true", bytes.NewReader(payload))
	if err != nil {
		return Report{}, "request", fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Report{}, "timeout", fmt.Errorf("%w: no response within %s", ErrUnavailable, c.cfg.Timeout)
		}
		return Report{}, "transport", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Report{}, "status", fmt.Errorf("%w: judge returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var body submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, "body", fmt.Errorf("%w: decode judge response: %v", ErrUnavailable, err)
	}

	if body.Stdout == nil || *body.Stdout == "" {
		return Report{}, "stdout", fmt.Errorf("%w: harness produced no report (status %q%s)", ErrUnavailable, body.Status.Description, firstLine(body.Stderr))
	}

	report, err := ParseReport(*body.Stdout)
	if err != nil {
		return Report{}, "report", err
	}

	return report, "", nil
}

func firstLine(text *string) string {
	if text == nil || *text == "" {
		return ""
	}
	line, _, _ := strings.Cut(*text, "\n")
	return ": " + line
}
