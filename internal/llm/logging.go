package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/tierloop/internal/logger"
)

// CallRecord describes one completed LLM request.
type CallRecord struct {
	SessionID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// Recorder persists call records. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordLLMCall(ctx context.Context, rec CallRecord) error
}

// LoggingProvider is a decorator that logs every request and hands a
// CallRecord to an optional Recorder.
type LoggingProvider struct {
	inner    Provider
	provider string
	log      *logger.Logger
	recorder Recorder
}

// WithLogging wraps a Provider with call logging. rec may be nil.
func WithLogging(p Provider, providerName string, log *logger.Logger, rec Recorder) Provider {
	return &LoggingProvider{inner: p, provider: providerName, log: logger.OrNop(log), recorder: rec}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	rec := CallRecord{
		SessionID:   SessionFrom(ctx),
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		rec.Model = resp.Model
		rec.ResponseBody = string(resp.Content)
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
		l.log.Warn("llm request failed", "provider", rec.Provider, "purpose", rec.Purpose,
			"latency_ms", rec.LatencyMs, "error", err)
	} else {
		l.log.Debug("llm request", "provider", rec.Provider, "model", rec.Model, "purpose", rec.Purpose,
			"latency_ms", rec.LatencyMs, "input_tokens", rec.InputTokens, "output_tokens", rec.OutputTokens)
	}

	if l.recorder != nil {
		// Recording must not fail the request.
		if recErr := l.recorder.RecordLLMCall(context.WithoutCancel(ctx), rec); recErr != nil {
			l.log.Warn("failed to record llm call", "error", recErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
