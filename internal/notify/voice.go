package notify

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// VoiceConfig holds Twilio voice-call configuration.
type VoiceConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string // overrides the Twilio API base, used in tests
}

// Validate validates the voice configuration.
func (c *VoiceConfig) Validate() error {
	if c.AccountSID == "" {
		return fmt.Errorf("twilio account SID is required")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("twilio auth token is required")
	}
	if c.FromNumber == "" {
		return fmt.Errorf("twilio from number is required")
	}
	return nil
}

// CallOptions control how the spoken message is rendered.
type CallOptions struct {
	Voice         string // defaults to "Polly.Joanna"
	Language      string // defaults to "en-US"
	Loop          int    // defaults to 1
	PauseDuration int    // seconds of trailing pause, defaults to 1
	IntroPause    int    // seconds of silence before the message
	SecondMessage string // optional follow-up message
}

func (o CallOptions) withDefaults() CallOptions {
	if o.Voice == "" {
		o.Voice = "Polly.Joanna"
	}
	if o.Language == "" {
		o.Language = "en-US"
	}
	if o.Loop == 0 {
		o.Loop = 1
	}
	if o.PauseDuration == 0 {
		o.PauseDuration = 1
	}
	return o
}

// VoiceCaller places automated voice calls through the Twilio REST API.
type VoiceCaller struct {
	config VoiceConfig
	client *http.Client
}

// NewVoiceCaller creates a new Twilio voice caller.
func NewVoiceCaller(config VoiceConfig) (*VoiceCaller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid voice config: %w", err)
	}
	if config.BaseURL == "" {
		config.BaseURL = twilioAPIBase
	}
	return &VoiceCaller{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Call places a call that speaks the message and returns the call SID.
func (v *VoiceCaller) Call(ctx context.Context, phoneNumber, message string, opts CallOptions) (string, error) {
	if phoneNumber == "" {
		return "", fmt.Errorf("phone number is required")
	}
	if message == "" {
		return "", fmt.Errorf("message is required")
	}

	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("From", v.config.FromNumber)
	form.Set("Twiml", BuildTwiML(message, opts))

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", v.config.BaseURL, v.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build call request: %w", err)
	}
	req.SetBasicAuth(v.config.AccountSID, v.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to place call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read call response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("twilio returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("twilio returned %d", resp.StatusCode)
	}

	var call struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &call); err != nil {
		return "", fmt.Errorf("failed to decode call response: %w", err)
	}
	return call.SID, nil
}

// BuildTwiML renders the voice instruction document for a call.
func BuildTwiML(message string, opts CallOptions) string {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString("<Response>")

	if opts.IntroPause > 0 {
		fmt.Fprintf(&b, `<Pause length="%d"/>`, opts.IntroPause)
	}

	fmt.Fprintf(&b, `<Say voice="%s" language="%s" loop="%d">%s</Say>`,
		opts.Voice, opts.Language, opts.Loop, escapeXML(message))

	if opts.PauseDuration > 0 {
		fmt.Fprintf(&b, `<Pause length="%d"/>`, opts.PauseDuration)
	}

	if opts.SecondMessage != "" {
		fmt.Fprintf(&b, `<Say voice="%s" language="%s">%s</Say>`,
			opts.Voice, opts.Language, escapeXML(opts.SecondMessage))
	}

	b.WriteString("</Response>")
	return b.String()
}

func escapeXML(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
