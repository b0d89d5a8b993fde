package llm

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"pantry-planner/internal/logger"
	"pantry-planner/internal/shared"
)

// Instructions is the system prompt of the cooking assistant.
const Instructions = "You are a friendly cooking-inspiration assistant. Reply in 2–4 short sentences."

const (
	msgMissingPrompt     = "Missing prompt string"
	msgInsufficientQuota = "Insufficient quota on your language model account. Add a payment method or credits, then try again."
	msgRequestFailed     = "LLM request failed"
)

//go:embed assistant_prompt.md
var assistantPrompt string

var promptTmpl = template.Must(template.New("assistant").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(assistantPrompt))

// ProxyError carries an HTTP-style status and a displayable message.
type ProxyError struct {
	Status  int
	Message string
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// UsageRecorder persists the token usage of each answered prompt.
type UsageRecorder interface {
	RecordMeta(meta shared.CallMeta) error
}

// Proxy forwards free-text prompts to a TextGenerator.
type Proxy struct {
	gen   TextGenerator
	usage UsageRecorder
	log   *logger.Logger
}

// NewProxy creates a proxy. usage may be nil.
func NewProxy(gen TextGenerator, usage UsageRecorder, log *logger.Logger) *Proxy {
	return &Proxy{gen: gen, usage: usage, log: log}
}

// Mock reports whether answers are canned.
func (p *Proxy) Mock() bool {
	_, ok := p.gen.(MockGenerator)
	return ok
}

// Ask returns a short answer to prompt. pantry optionally lists ingredients
// the user has, which are appended to the prompt. Every error is a *ProxyError.
func (p *Proxy) Ask(ctx context.Context, prompt string, pantry ...string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &ProxyError{Status: http.StatusBadRequest, Message: msgMissingPrompt}
	}

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, struct {
		Prompt string
		Pantry []string
	}{prompt, pantry}); err != nil {
		return "", &ProxyError{Status: http.StatusInternalServerError, Message: msgRequestFailed}
	}

	start := time.Now()
	resp, err := p.gen.GenerateContent(ctx, buf.String())
	if err != nil {
		p.log.Error("LLM route failed", "error", err)
		return "", toProxyError(err)
	}

	if p.usage != nil {
		meta := shared.CallMeta{Caller: "Assistant", Usage: resp.Usage, Latency: time.Since(start)}
		if err := p.usage.RecordMeta(meta); err != nil {
			p.log.Warn("failed to record llm usage", "error", err)
		}
	}
	return resp.Content, nil
}

func toProxyError(err error) *ProxyError {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return &ProxyError{Status: http.StatusInternalServerError, Message: msgRequestFailed}
	}
	if apiErr.Status == http.StatusTooManyRequests || apiErr.Code == "insufficient_quota" {
		return &ProxyError{Status: http.StatusTooManyRequests, Message: msgInsufficientQuota}
	}

	status := apiErr.Status
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	msg := apiErr.Message
	if msg == "" {
		msg = msgRequestFailed
	}
	return &ProxyError{Status: status, Message: msg}
}
