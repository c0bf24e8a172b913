// Package advisory produces non-binding AI analysis for human reviewers.
// Nothing here changes workflow state; callers decide what to do with a
// result or with ErrUnavailable.
package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnavailable means no advisory could be produced. It is never a reason to block a reviewer.
var ErrUnavailable = errors.New("advisory: unavailable")

// UnavailableNote is recorded when the collaborator failed.
const UnavailableNote = "AI advisory unavailable; proceed with manual review"

var advisoryTracer = otel.Tracer("novacare.internal.advisory")

// Advisor wraps an LLMClient with prompts, a deadline and response parsing.
type Advisor struct {
	client      LLMClient
	model       string
	timeout     time.Duration
	temperature float32
	logger      *logging.Logger
	metrics     *metrics.AdvisoryMetrics
	now         func() time.Time
}

type Option func(*Advisor)

func WithModel(model string) Option { return func(a *Advisor) { a.model = model } }

func WithTimeout(d time.Duration) Option {
	return func(a *Advisor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *metrics.AdvisoryMetrics) Option { return func(a *Advisor) { a.metrics = m } }

// NewAdvisor builds an advisor. A nil client yields an advisor that always reports ErrUnavailable.
func NewAdvisor(client LLMClient, opts ...Option) *Advisor {
	a := &Advisor{
		client:      client,
		timeout:     20 * time.Second,
		temperature: 0.2,
		logger:      logging.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// complete runs one JSON-producing prompt and decodes the reply into out.
func (a *Advisor) complete(ctx context.Context, task, system, prompt string, maxTokens int32, out any) (err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		a.metrics.ObserveRequest(task, outcome, time.Since(start).Seconds())
	}()

	if a.client == nil {
		outcome = "disabled"
		return fmt.Errorf("%w: no client configured", ErrUnavailable)
	}

	ctx, span := advisoryTracer.Start(ctx, "advisory.complete", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("advisory.task", task))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Complete(callCtx, LLMRequest{
		Model:       a.model,
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		outcome = "error"
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		a.logger.Warn("advisory request failed", "task", task, "outcome", outcome, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := json.Unmarshal([]byte(ExtractJSON(resp.Text)), out); err != nil {
		outcome = "malformed"
		a.logger.Warn("advisory reply was not valid JSON", "task", task, "error", err)
		return fmt.Errorf("%w: malformed reply: %v", ErrUnavailable, err)
	}
	return nil
}

// ExtractJSON strips markdown fences and any prose around the outermost JSON value.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "json"))
	}
	open := strings.IndexAny(s, "{[")
	if open < 0 {
		return s
	}
	closeCh := byte('}')
	if s[open] == '[' {
		closeCh = ']'
	}
	if end := strings.LastIndexByte(s, closeCh); end > open {
		return s[open : end+1]
	}
	return s
}

// score converts a model-reported number into a 0-100 integer.
func score(raw json.Number) (int, error) {
	if raw == "" {
		return 0, errors.New("score missing")
	}
	f, err := raw.Float64()
	if err != nil {
		return 0, fmt.Errorf("score %q: %w", raw, err)
	}
	if math.IsNaN(f) || f < 0 || f > 100 {
		return 0, fmt.Errorf("score %v out of range", f)
	}
	return int(math.Round(f)), nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
