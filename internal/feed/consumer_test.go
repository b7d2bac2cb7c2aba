package feed_test

import (
	"encoding/json"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"citywatch.dev/sentinel/internal/alerting"
	"citywatch.dev/sentinel/internal/feed"
	"citywatch.dev/sentinel/pkg/mq/mock"
)

var _ = Describe("Frame", func() {
	It("should decode an alert frame", func() {
		raw := `{
			"type": "alert",
			"data": {
				"types": ["intrusion"],
				"severity": "high",
				"location": "North Perimeter",
				"description": "Fence crossing detected",
				"sensorData": {"video": true}
			}
		}`

		var frame feed.Frame
		Expect(json.Unmarshal([]byte(raw), &frame)).To(Succeed())
		Expect(frame.Type).To(Equal(feed.FrameAlert))
		Expect(frame.Data).NotTo(BeNil())
		Expect(frame.Data.Types).To(ConsistOf("intrusion"))
		Expect(frame.Data.SensorData).To(HaveKeyWithValue("video", true))
	})

	It("should decode a connection frame", func() {
		var frame feed.Frame
		Expect(json.Unmarshal([]byte(`{"type":"connection_established","message":"hello"}`), &frame)).To(Succeed())
		Expect(frame.Type).To(Equal(feed.FrameConnectionEstablished))
		Expect(frame.Message).To(Equal("hello"))
		Expect(frame.Data).To(BeNil())
	})

	It("should decode an error frame", func() {
		var frame feed.Frame
		Expect(json.Unmarshal([]byte(`{"type":"error","error":"upstream gone"}`), &frame)).To(Succeed())
		Expect(frame.Type).To(Equal(feed.FrameError))
		Expect(frame.Error).To(Equal("upstream gone"))
	})
})

var _ = Describe("NewConsumer", func() {
	var (
		logger  *slog.Logger
		service *alerting.Service
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))

		var err error
		service, err = alerting.NewService(logger, &gorm.DB{})
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with valid configuration", func() {
		It("should create a consumer with an injected client", func() {
			consumer, err := feed.NewConsumer(&feed.ConsumerConfig{
				Logger:  logger,
				Service: service,
				CityID:  "c1",
				Client:  &mock.MockClient{},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(consumer).NotTo(BeNil())
		})
	})

	Context("with invalid configuration", func() {
		It("should return error when config is nil", func() {
			consumer, err := feed.NewConsumer(nil)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
			Expect(consumer).To(BeNil())
		})

		It("should return error when logger is nil", func() {
			_, err := feed.NewConsumer(&feed.ConsumerConfig{
				Service: service,
				CityID:  "c1",
				Client:  &mock.MockClient{},
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger"))
		})

		It("should return error when the service is nil", func() {
			_, err := feed.NewConsumer(&feed.ConsumerConfig{
				Logger: logger,
				CityID: "c1",
				Client: &mock.MockClient{},
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("service"))
		})

		It("should return error when the city ID is empty", func() {
			_, err := feed.NewConsumer(&feed.ConsumerConfig{
				Logger:  logger,
				Service: service,
				Client:  &mock.MockClient{},
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("city"))
		})

		It("should return error when no client and no URL are supplied", func() {
			_, err := feed.NewConsumer(&feed.ConsumerConfig{
				Logger:  logger,
				Service: service,
				CityID:  "c1",
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("rabbitmq URL"))
		})
	})
})
