package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"citywatch.dev/sentinel/pkg/metrics"
)

// Notification channel selectors.
const (
	TypeEmail = "email"
	TypeCall  = "call"
	TypeBoth  = "both"
)

// Validation errors surfaced to the API layer as client errors.
var (
	ErrInvalidType       = errors.New("notificationType must be one of email, call, both")
	ErrMissingEmailField = errors.New("recipient, subject and message are required for email notifications")
	ErrMissingCallField  = errors.New("phoneNumber and message are required for call notifications")
)

// Mailer sends a notification email and returns its message ID.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// Caller places an automated voice call and returns the call SID.
type Caller interface {
	Call(ctx context.Context, phoneNumber, message string, opts CallOptions) (string, error)
}

// ContentSource drafts notification text from alert context.
type ContentSource interface {
	Generate(ctx context.Context, alertContext string) (string, error)
}

// Request is a notification dispatch request.
type Request struct {
	Type       string     `json:"notificationType"`
	Recipients Recipients `json:"recipient"`
	CC         Recipients `json:"cc,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Message    string     `json:"message"`
	Phone      string     `json:"phoneNumber,omitempty"`
	ReplyTo    string     `json:"replyTo,omitempty"`
	Important  bool       `json:"isImportant,omitempty"`
	AIContext  string     `json:"aiContext,omitempty"`

	Voice         string `json:"voice,omitempty"`
	Language      string `json:"language,omitempty"`
	Loop          int    `json:"loop,omitempty"`
	PauseDuration int    `json:"pauseDuration,omitempty"`
	IntroPause    int    `json:"introPause,omitempty"`
	SecondMessage string `json:"secondMessage,omitempty"`
}

// Validate checks the request shape. Channel failures during dispatch are
// reported per channel; validation failures reject the whole request.
func (r *Request) Validate() error {
	switch r.Type {
	case TypeEmail, TypeCall, TypeBoth:
	default:
		return ErrInvalidType
	}

	if r.Type == TypeEmail || r.Type == TypeBoth {
		if len(r.Recipients) == 0 || r.Subject == "" || r.Message == "" {
			return ErrMissingEmailField
		}
	}
	if r.Type == TypeCall || r.Type == TypeBoth {
		if r.Phone == "" || r.Message == "" {
			return ErrMissingCallField
		}
	}
	return nil
}

// ChannelResult is the outcome of one delivery channel.
type ChannelResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	CallSID   string `json:"callSid,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result aggregates per-channel outcomes of a dispatch.
type Result struct {
	Email       *ChannelResult `json:"email,omitempty"`
	Call        *ChannelResult `json:"call,omitempty"`
	AIGenerated bool           `json:"aiGenerated,omitempty"`
}

// DispatcherConfig holds dependencies for a Dispatcher.
type DispatcherConfig struct {
	Logger  *slog.Logger
	Mailer  Mailer        // nil disables the email channel
	Caller  Caller        // nil disables the call channel
	Content ContentSource // nil disables content generation
	Metrics *metrics.NotifierMetrics
}

// Dispatcher fans a notification request out to its channels. Channel
// failures are independent: a failed email never blocks the call.
type Dispatcher struct {
	logger  *slog.Logger
	mailer  Mailer
	caller  Caller
	content ContentSource
	metrics *metrics.NotifierMetrics
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(config *DispatcherConfig) (*Dispatcher, error) {
	if config == nil {
		return nil, errors.New("dispatcher config cannot be nil")
	}
	if config.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Dispatcher{
		logger:  config.Logger,
		mailer:  config.Mailer,
		caller:  config.Caller,
		content: config.Content,
		metrics: config.Metrics,
	}, nil
}

// Dispatch validates the request and delivers on each selected channel.
// The returned error is non-nil only for validation failures; delivery
// failures are reported inside the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	message := req.Message
	result := &Result{}

	if req.AIContext != "" && d.content != nil {
		generated, err := d.content.Generate(ctx, req.AIContext)
		if err != nil {
			// Fall back to the caller-provided message.
			d.logger.Warn("content generation failed, using provided message", "error", err)
		} else {
			message = generated
			result.AIGenerated = true
		}
	}

	if req.Type == TypeEmail || req.Type == TypeBoth {
		result.Email = d.sendEmail(ctx, req, message)
	}
	if req.Type == TypeCall || req.Type == TypeBoth {
		result.Call = d.placeCall(ctx, req, message)
	}

	return result, nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, req *Request, message string) *ChannelResult {
	if d.mailer == nil {
		return &ChannelResult{Success: false, Error: "email channel is not configured"}
	}

	start := time.Now()
	messageID, err := d.mailer.Send(ctx, EmailMessage{
		To:        req.Recipients,
		CC:        req.CC,
		Subject:   req.Subject,
		Body:      message,
		ReplyTo:   req.ReplyTo,
		Important: req.Important,
	})
	d.observe(TypeEmail, start, err)

	if err != nil {
		d.logger.Error("failed to send notification email", "error", err)
		return &ChannelResult{Success: false, Error: err.Error()}
	}

	d.logger.Info("notification email sent", "message_id", messageID, "recipients", len(req.Recipients))
	return &ChannelResult{Success: true, MessageID: messageID}
}

func (d *Dispatcher) placeCall(ctx context.Context, req *Request, message string) *ChannelResult {
	if d.caller == nil {
		return &ChannelResult{Success: false, Error: "call channel is not configured"}
	}

	start := time.Now()
	callSID, err := d.caller.Call(ctx, req.Phone, message, CallOptions{
		Voice:         req.Voice,
		Language:      req.Language,
		Loop:          req.Loop,
		PauseDuration: req.PauseDuration,
		IntroPause:    req.IntroPause,
		SecondMessage: req.SecondMessage,
	})
	d.observe(TypeCall, start, err)

	if err != nil {
		d.logger.Error("failed to place notification call", "error", err)
		return &ChannelResult{Success: false, Error: err.Error()}
	}

	d.logger.Info("notification call placed", "call_sid", callSID)
	return &ChannelResult{Success: true, CallSID: callSID}
}

func (d *Dispatcher) observe(channel string, start time.Time, err error) {
	if d.metrics == nil {
		return
	}
	d.metrics.SendDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())
	if err != nil {
		d.metrics.NotificationsFailed.WithLabelValues(channel).Inc()
		return
	}
	d.metrics.NotificationsSent.WithLabelValues(channel).Inc()
}

var (
	_ Mailer        = (*EmailSender)(nil)
	_ Caller        = (*VoiceCaller)(nil)
	_ ContentSource = (*ContentGenerator)(nil)
)

// Recipients accepts both wire forms the route takes: a single string
// or a list of strings.
type Recipients []string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Recipients) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = nil
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = Recipients{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*r = Recipients(list)
	return nil
}
