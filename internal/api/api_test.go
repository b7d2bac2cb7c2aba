package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"citywatch.dev/sentinel/internal/alerting"
	"citywatch.dev/sentinel/internal/api"
	"citywatch.dev/sentinel/internal/notify"
)

type stubMailer struct {
	err error
}

func (s *stubMailer) Send(_ context.Context, _ notify.EmailMessage) (string, error) {
	return "<stub-id>", s.err
}

var _ = Describe("JWTService", func() {
	var jwtService *api.JWTService

	BeforeEach(func() {
		jwtService = api.NewJWTService([]byte("test-secret"))
	})

	It("should validate a token it issued", func() {
		token, err := jwtService.GenerateToken("u1", "ops@city.gov", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		claims, err := jwtService.ValidateToken(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal("u1"))
		Expect(claims.Email).To(Equal("ops@city.gov"))
	})

	It("should reject a token signed with another secret", func() {
		other := api.NewJWTService([]byte("different-secret"))
		token, err := other.GenerateToken("u1", "ops@city.gov", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		_, err = jwtService.ValidateToken(token)
		Expect(err).To(HaveOccurred())
	})

	It("should reject an expired token", func() {
		token, err := jwtService.GenerateToken("u1", "ops@city.gov", -time.Minute)
		Expect(err).NotTo(HaveOccurred())

		_, err = jwtService.ValidateToken(token)
		Expect(err).To(HaveOccurred())
	})

	It("should reject garbage", func() {
		_, err := jwtService.ValidateToken("not.a.token")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Router", func() {
	var (
		router     http.Handler
		jwtService *api.JWTService
		token      string
	)

	const notifyKey = "super-secret-key"

	BeforeEach(func() {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))

		// Routes under test validate and reject before touching storage,
		// so the service never executes a query here.
		service, err := alerting.NewService(logger, &gorm.DB{})
		Expect(err).NotTo(HaveOccurred())

		dispatcher, err := notify.NewDispatcher(&notify.DispatcherConfig{
			Logger: logger,
			Mailer: &stubMailer{},
		})
		Expect(err).NotTo(HaveOccurred())

		handler, err := api.NewHandler(&api.HandlerConfig{
			Logger:       logger,
			Service:      service,
			Dispatcher:   dispatcher,
			NotifyAPIKey: notifyKey,
		})
		Expect(err).NotTo(HaveOccurred())

		jwtService = api.NewJWTService([]byte("test-secret"))
		token, err = jwtService.GenerateToken("u1", "ops@city.gov", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		router = api.NewRouter(api.RouterConfig{
			Handler:    handler,
			JWTService: jwtService,
			Logger:     logger,
		})
	})

	do := func(method, path, body, bearer string) *httptest.ResponseRecorder {
		var reader *strings.Reader
		if body == "" {
			reader = strings.NewReader("")
		} else {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &payload)).To(Succeed())
		return payload.Error.Code
	}

	Describe("health endpoint", func() {
		It("should be open and report ok", func() {
			rec := do(http.MethodGet, "/health", "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"ok"`))
		})
	})

	Describe("bearer authentication", func() {
		It("should reject requests without a token", func() {
			rec := do(http.MethodPost, "/api/alerts", `{}`, "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(rec)).To(Equal(api.ErrCodeUnauthorized))
		})

		It("should reject a malformed authorization header", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/alerts", strings.NewReader(`{}`))
			req.Header.Set("Authorization", "Token abc")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject an invalid token", func() {
			rec := do(http.MethodPost, "/api/alerts", `{}`, "bogus")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("POST /api/alerts validation", func() {
		It("should require the alert payload", func() {
			rec := do(http.MethodPost, "/api/alerts", `{"zoneId":"z1","cityId":"c1"}`, token)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("alert"))
		})

		It("should require zoneId", func() {
			rec := do(http.MethodPost, "/api/alerts", `{"alert":{"type":"fire"},"cityId":"c1"}`, token)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("zoneId"))
		})

		It("should require cityId", func() {
			rec := do(http.MethodPost, "/api/alerts", `{"alert":{"type":"fire"},"zoneId":"z1"}`, token)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("cityId"))
		})

		It("should reject invalid JSON", func() {
			rec := do(http.MethodPost, "/api/alerts", `{nope`, token)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PATCH /api/alerts/{id}/status validation", func() {
		It("should reject a status outside the enumeration", func() {
			rec := do(http.MethodPatch, "/api/alerts/a1/status", `{"status":"CLOSED"}`, token)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(rec)).To(Equal(api.ErrCodeValidationFailed))
		})

		It("should reject an empty status", func() {
			rec := do(http.MethodPatch, "/api/alerts/a1/status", `{}`, token)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/zones/default validation", func() {
		It("should require cityId", func() {
			rec := do(http.MethodGet, "/api/zones/default", "", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("cityId"))
		})
	})

	Describe("POST /api/notifications", func() {
		It("should reject a missing API key", func() {
			rec := do(http.MethodPost, "/api/notifications", `{"notificationType":"email"}`, "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject a wrong API key", func() {
			body := `{"apiKey":"wrong","notificationType":"email"}`
			rec := do(http.MethodPost, "/api/notifications", body, "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(rec)).To(Equal(api.ErrCodeUnauthorized))
		})

		It("should reject invalid channel fields with the right key", func() {
			body := `{"apiKey":"super-secret-key","notificationType":"email","message":"hi"}`
			rec := do(http.MethodPost, "/api/notifications", body, "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(rec)).To(Equal(api.ErrCodeValidationFailed))
		})

		It("should surface the failure message when dispatch is not wired", func() {
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))
			service, err := alerting.NewService(logger, &gorm.DB{})
			Expect(err).NotTo(HaveOccurred())

			handler, err := api.NewHandler(&api.HandlerConfig{
				Logger:       logger,
				Service:      service,
				NotifyAPIKey: notifyKey,
			})
			Expect(err).NotTo(HaveOccurred())

			bare := api.NewRouter(api.RouterConfig{
				Handler:    handler,
				JWTService: jwtService,
				Logger:     logger,
			})

			body := `{
				"apiKey": "super-secret-key",
				"notificationType": "email",
				"recipient": "ops@city.gov",
				"subject": "Perimeter breach",
				"message": "Check sector 4"
			}`
			req := httptest.NewRequest(http.MethodPost, "/api/notifications", strings.NewReader(body))
			rec := httptest.NewRecorder()
			bare.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(errorCode(rec)).To(Equal(api.ErrCodeInternalError))
			Expect(rec.Body.String()).To(ContainSubstring("notification dispatch is not configured"))
		})

		It("should dispatch and report per-channel results", func() {
			body := `{
				"apiKey": "super-secret-key",
				"notificationType": "email",
				"recipient": "ops@city.gov",
				"subject": "Perimeter breach",
				"message": "Check sector 4"
			}`
			rec := do(http.MethodPost, "/api/notifications", body, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var payload struct {
				Success bool `json:"success"`
				Results struct {
					Email *struct {
						Success   bool   `json:"success"`
						MessageID string `json:"messageId"`
					} `json:"email"`
				} `json:"results"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &payload)).To(Succeed())
			Expect(payload.Success).To(BeTrue())
			Expect(payload.Results.Email).NotTo(BeNil())
			Expect(payload.Results.Email.Success).To(BeTrue())
			Expect(payload.Results.Email.MessageID).To(Equal("<stub-id>"))
		})
	})
})
