package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"citywatch.dev/sentinel/internal/notify"
)

type fakeMailer struct {
	messageID string
	err       error
	sent      []notify.EmailMessage
}

func (f *fakeMailer) Send(_ context.Context, msg notify.EmailMessage) (string, error) {
	f.sent = append(f.sent, msg)
	return f.messageID, f.err
}

type fakeCaller struct {
	callSID string
	err     error
	phones  []string
	spoken  []string
}

func (f *fakeCaller) Call(_ context.Context, phoneNumber, message string, _ notify.CallOptions) (string, error) {
	f.phones = append(f.phones, phoneNumber)
	f.spoken = append(f.spoken, message)
	return f.callSID, f.err
}

type fakeContent struct {
	content string
	err     error
}

func (f *fakeContent) Generate(_ context.Context, _ string) (string, error) {
	return f.content, f.err
}

var _ = Describe("Request", func() {
	Describe("Validate", func() {
		It("should reject an unknown notification type", func() {
			req := &notify.Request{Type: "sms", Message: "hi"}
			Expect(req.Validate()).To(MatchError(notify.ErrInvalidType))
		})

		It("should require recipient, subject and message for email", func() {
			req := &notify.Request{
				Type:    notify.TypeEmail,
				Subject: "Alert",
				Message: "hi",
			}
			Expect(req.Validate()).To(MatchError(notify.ErrMissingEmailField))
		})

		It("should require phone number for calls", func() {
			req := &notify.Request{Type: notify.TypeCall, Message: "hi"}
			Expect(req.Validate()).To(MatchError(notify.ErrMissingCallField))
		})

		It("should validate both channels for type both", func() {
			req := &notify.Request{
				Type:       notify.TypeBoth,
				Recipients: notify.Recipients{"ops@city.gov"},
				Subject:    "Alert",
				Message:    "hi",
			}
			Expect(req.Validate()).To(MatchError(notify.ErrMissingCallField))

			req.Phone = "+15550100"
			Expect(req.Validate()).To(Succeed())
		})
	})

	Describe("Recipients", func() {
		It("should accept a single string", func() {
			var req notify.Request
			body := `{"notificationType":"email","recipient":"ops@city.gov","subject":"s","message":"m"}`
			Expect(json.Unmarshal([]byte(body), &req)).To(Succeed())
			Expect(req.Recipients).To(Equal(notify.Recipients{"ops@city.gov"}))
		})

		It("should accept a list of strings", func() {
			var req notify.Request
			body := `{"notificationType":"email","recipient":["a@city.gov","b@city.gov"],"subject":"s","message":"m"}`
			Expect(json.Unmarshal([]byte(body), &req)).To(Succeed())
			Expect(req.Recipients).To(HaveLen(2))
		})

		It("should treat null as empty", func() {
			var req notify.Request
			Expect(json.Unmarshal([]byte(`{"recipient":null}`), &req)).To(Succeed())
			Expect(req.Recipients).To(BeEmpty())
		})
	})
})

var _ = Describe("Dispatcher", func() {
	var (
		logger *slog.Logger
		mailer *fakeMailer
		caller *fakeCaller
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		mailer = &fakeMailer{messageID: "<m1>"}
		caller = &fakeCaller{callSID: "CA123"}
	})

	newDispatcher := func(content notify.ContentSource) *notify.Dispatcher {
		d, err := notify.NewDispatcher(&notify.DispatcherConfig{
			Logger:  logger,
			Mailer:  mailer,
			Caller:  caller,
			Content: content,
		})
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	It("should require a config and a logger", func() {
		_, err := notify.NewDispatcher(nil)
		Expect(err).To(HaveOccurred())

		_, err = notify.NewDispatcher(&notify.DispatcherConfig{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("logger"))
	})

	It("should return validation errors instead of a result", func() {
		d := newDispatcher(nil)
		result, err := d.Dispatch(context.Background(), &notify.Request{Type: "fax"})
		Expect(err).To(MatchError(notify.ErrInvalidType))
		Expect(result).To(BeNil())
	})

	It("should send email only for type email", func() {
		d := newDispatcher(nil)
		result, err := d.Dispatch(context.Background(), &notify.Request{
			Type:       notify.TypeEmail,
			Recipients: notify.Recipients{"ops@city.gov"},
			Subject:    "Perimeter breach",
			Message:    "Check sector 4",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Email).NotTo(BeNil())
		Expect(result.Email.Success).To(BeTrue())
		Expect(result.Email.MessageID).To(Equal("<m1>"))
		Expect(result.Call).To(BeNil())
		Expect(caller.phones).To(BeEmpty())
	})

	It("should not let an email failure block the call", func() {
		mailer.err = errors.New("smtp down")
		d := newDispatcher(nil)

		result, err := d.Dispatch(context.Background(), &notify.Request{
			Type:       notify.TypeBoth,
			Recipients: notify.Recipients{"ops@city.gov"},
			Subject:    "Perimeter breach",
			Message:    "Check sector 4",
			Phone:      "+15550100",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Email.Success).To(BeFalse())
		Expect(result.Email.Error).To(ContainSubstring("smtp down"))
		Expect(result.Call.Success).To(BeTrue())
		Expect(result.Call.CallSID).To(Equal("CA123"))
	})

	It("should use generated content when an AI context is supplied", func() {
		d := newDispatcher(&fakeContent{content: "Generated summary"})

		result, err := d.Dispatch(context.Background(), &notify.Request{
			Type:      notify.TypeCall,
			Message:   "fallback",
			Phone:     "+15550100",
			AIContext: "fire alert in zone 2",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.AIGenerated).To(BeTrue())
		Expect(caller.spoken).To(ConsistOf("Generated summary"))
	})

	It("should fall back to the provided message when generation fails", func() {
		d := newDispatcher(&fakeContent{err: errors.New("service unavailable")})

		result, err := d.Dispatch(context.Background(), &notify.Request{
			Type:      notify.TypeCall,
			Message:   "fallback",
			Phone:     "+15550100",
			AIContext: "fire alert in zone 2",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.AIGenerated).To(BeFalse())
		Expect(result.Call.Success).To(BeTrue())
		Expect(caller.spoken).To(ConsistOf("fallback"))
	})

	It("should report an unconfigured channel as a failed result", func() {
		d, err := notify.NewDispatcher(&notify.DispatcherConfig{
			Logger: logger,
			Mailer: mailer,
		})
		Expect(err).NotTo(HaveOccurred())

		result, err := d.Dispatch(context.Background(), &notify.Request{
			Type:    notify.TypeCall,
			Message: "hi",
			Phone:   "+15550100",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Call.Success).To(BeFalse())
		Expect(result.Call.Error).To(ContainSubstring("not configured"))
	})
})
