package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"citywatch.dev/sentinel/internal/notify"
)

var _ = Describe("BuildTwiML", func() {
	It("should render a message with default voice settings", func() {
		twiml := notify.BuildTwiML("Intrusion detected", notify.CallOptions{})
		Expect(twiml).To(Equal(`<Response><Say voice="Polly.Joanna" language="en-US" loop="1">Intrusion detected</Say><Pause length="1"/></Response>`))
	})

	It("should include intro pause and second message", func() {
		twiml := notify.BuildTwiML("First", notify.CallOptions{
			IntroPause:    2,
			SecondMessage: "Second",
		})
		Expect(twiml).To(HavePrefix(`<Response><Pause length="2"/>`))
		Expect(twiml).To(ContainSubstring(`<Say voice="Polly.Joanna" language="en-US">Second</Say>`))
	})

	It("should escape markup in the spoken message", func() {
		twiml := notify.BuildTwiML(`Zone <4> & "east"`, notify.CallOptions{})
		Expect(twiml).To(ContainSubstring("Zone &lt;4&gt; &amp;"))
		Expect(twiml).NotTo(ContainSubstring("<4>"))
	})
})

var _ = Describe("VoiceCaller", func() {
	It("should reject incomplete configuration", func() {
		_, err := notify.NewVoiceCaller(notify.VoiceConfig{AccountSID: "AC1"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("auth token"))
	})

	It("should post the call form and return the call SID", func() {
		var gotForm map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/Accounts/AC1/Calls.json"))

			user, pass, ok := r.BasicAuth()
			Expect(ok).To(BeTrue())
			Expect(user).To(Equal("AC1"))
			Expect(pass).To(Equal("secret"))

			Expect(r.ParseForm()).To(Succeed())
			gotForm = map[string]string{
				"To":    r.PostForm.Get("To"),
				"From":  r.PostForm.Get("From"),
				"Twiml": r.PostForm.Get("Twiml"),
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			Expect(json.NewEncoder(w).Encode(map[string]string{"sid": "CA42"})).To(Succeed())
		}))
		defer server.Close()

		caller, err := notify.NewVoiceCaller(notify.VoiceConfig{
			AccountSID: "AC1",
			AuthToken:  "secret",
			FromNumber: "+15550000",
			BaseURL:    server.URL,
		})
		Expect(err).NotTo(HaveOccurred())

		sid, err := caller.Call(context.Background(), "+15550100", "Intrusion detected", notify.CallOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sid).To(Equal("CA42"))
		Expect(gotForm["To"]).To(Equal("+15550100"))
		Expect(gotForm["From"]).To(Equal("+15550000"))
		Expect(gotForm["Twiml"]).To(ContainSubstring("Intrusion detected"))
	})

	It("should surface the provider error message", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "invalid phone number"})
		}))
		defer server.Close()

		caller, err := notify.NewVoiceCaller(notify.VoiceConfig{
			AccountSID: "AC1",
			AuthToken:  "secret",
			FromNumber: "+15550000",
			BaseURL:    server.URL,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = caller.Call(context.Background(), "bogus", "hi", notify.CallOptions{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid phone number"))
	})

	It("should require phone number and message", func() {
		caller, err := notify.NewVoiceCaller(notify.VoiceConfig{
			AccountSID: "AC1",
			AuthToken:  "secret",
			FromNumber: "+15550000",
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = caller.Call(context.Background(), "", "hi", notify.CallOptions{})
		Expect(err).To(HaveOccurred())

		_, err = caller.Call(context.Background(), "+15550100", "", notify.CallOptions{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ContentGenerator", func() {
	It("should require a URL", func() {
		_, err := notify.NewContentGenerator(notify.ContentConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("should post the alert context and return generated text", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer k1"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["context"]).To(Equal("fire in zone 2"))

			_ = json.NewEncoder(w).Encode(map[string]string{"content": "Fire reported in zone 2."})
		}))
		defer server.Close()

		gen, err := notify.NewContentGenerator(notify.ContentConfig{URL: server.URL, APIKey: "k1"})
		Expect(err).NotTo(HaveOccurred())

		text, err := gen.Generate(context.Background(), "fire in zone 2")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Fire reported in zone 2."))
	})

	It("should fail on non-200 responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		gen, err := notify.NewContentGenerator(notify.ContentConfig{URL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.Generate(context.Background(), "anything")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("502"))
	})
})

var _ = Describe("EmailConfig", func() {
	It("should validate required fields", func() {
		cfg := notify.EmailConfig{}
		Expect(cfg.Validate()).To(HaveOccurred())

		cfg.Host = "smtp.city.gov"
		Expect(cfg.Validate()).To(HaveOccurred())

		cfg.Port = 587
		Expect(cfg.Validate()).To(HaveOccurred())

		cfg.From = "Sentinel <alerts@city.gov>"
		Expect(cfg.Validate()).To(Succeed())
	})
})
