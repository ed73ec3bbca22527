package contact

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Form field names relayed to the endpoint.
var Fields = []string{"name", "email", "message"}

const (
	maxFieldLength = 5000

	fallbackSuccess = "Thanks! Your message was sent."
	fallbackError   = "Sorry, something went wrong. Please try again or email me directly."
	fallbackSend    = "Send"
	sendingSuffix   = "…"
)

// Status classes of the form status line.
const (
	StatusClass        = "form__status"
	StatusSuccessClass = "form__status form__status--success"
	StatusErrorClass   = "form__status form__status--error"
)

var (
	// ErrNotConfigured is returned when no relay endpoint is set.
	ErrNotConfigured = errors.New("contact: endpoint not configured")
	// ErrRejected is returned when the endpoint answers with a non-2xx status.
	ErrRejected = errors.New("contact: submission rejected")
	// ErrEmpty is returned when every field is blank after sanitising.
	ErrEmpty = errors.New("contact: submission is empty")
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Relay forwards contact form submissions to a form backend. Each submission is sent
// once; there are no retries.
type Relay struct {
	endpoint string
	client   Doer
	policy   *bluemonday.Policy
	logger   *zap.Logger
}

// Option customises a Relay.
type Option func(*Relay)

// WithClient sets the HTTP client.
func WithClient(c Doer) Option {
	return func(r *Relay) {
		if c != nil {
			r.client = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRelay returns a relay posting to endpoint. An empty endpoint yields a relay whose
// Send always fails with ErrNotConfigured.
func NewRelay(endpoint string, opts ...Option) *Relay {
	r := &Relay{
		endpoint: strings.TrimSpace(endpoint),
		client:   http.DefaultClient,
		policy:   bluemonday.StrictPolicy(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Endpoint returns the configured endpoint.
func (r *Relay) Endpoint() string { return r.endpoint }

// Sanitize strips markup from the relayed fields and drops everything else.
func (r *Relay) Sanitize(form url.Values) url.Values {
	out := url.Values{}
	for _, name := range Fields {
		// The policy escapes entities for HTML output; the relay sends plain text.
		v := strings.TrimSpace(html.UnescapeString(r.policy.Sanitize(form.Get(name))))
		if len([]rune(v)) > maxFieldLength {
			v = string([]rune(v)[:maxFieldLength])
		}
		if v != "" {
			out.Set(name, v)
		}
	}
	return out
}

// Send relays form to the endpoint with Accept: application/json and reports whether the
// endpoint accepted it.
func (r *Relay) Send(ctx context.Context, form url.Values) error {
	if r.endpoint == "" {
		return ErrNotConfigured
	}
	clean := r.Sanitize(form)
	if len(clean) == 0 {
		return ErrEmpty
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(clean.Encode()))
	if err != nil {
		return fmt.Errorf("contact: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("contact: relay: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Warn("contact: endpoint rejected submission", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

// Translator is the slice of the localizer the contact flow reads.
type Translator interface {
	T(key string) (string, bool)
	TOr(key, fallback string) string
}

// Result is the status line shown after a submission.
type Result struct {
	OK      bool   `json:"ok"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

// ResultFor localises the outcome of a submission.
func ResultFor(t Translator, sendErr error) Result {
	if sendErr == nil {
		return Result{OK: true, Class: StatusSuccessClass, Message: t.TOr("contact.success", fallbackSuccess)}
	}
	return Result{Class: StatusErrorClass, Message: t.TOr("contact.error", fallbackError)}
}

// SendingLabel is the submit button label while a submission is in flight. The localised
// send label is used only when the contact section itself is translated.
func SendingLabel(t Translator) string {
	if _, ok := t.T("section.contact.title"); ok {
		return t.TOr("contact.btnSend", fallbackSend) + sendingSuffix
	}
	return fallbackSend + sendingSuffix
}
