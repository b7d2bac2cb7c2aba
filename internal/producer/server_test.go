package producer_test

import (
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"citywatch.dev/sentinel/internal/producer"
)

var _ = Describe("Producer Server", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError, // Only show errors in tests
		}))
	})

	Describe("NewServer", func() {
		Context("with valid configuration", func() {
			It("should create a server", func() {
				config := &producer.ServerConfig{
					Logger:        logger,
					RabbitMQURL:   "amqp://localhost:5672",
					QueueName:     "test-queue",
					ProducerCount: 3,
					Interval:      5 * time.Second,
				}

				server, err := producer.NewServer(config)
				Expect(err).NotTo(HaveOccurred())
				Expect(server).NotTo(BeNil())
			})
		})

		Context("with invalid configuration", func() {
			It("should reject a zero producer count", func() {
				config := &producer.ServerConfig{
					Logger:        logger,
					RabbitMQURL:   "amqp://localhost:5672",
					QueueName:     "test-queue",
					ProducerCount: 0,
					Interval:      time.Second,
				}

				_, err := producer.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("producer count"))
			})

			It("should reject a zero interval", func() {
				config := &producer.ServerConfig{
					Logger:        logger,
					RabbitMQURL:   "amqp://localhost:5672",
					QueueName:     "test-queue",
					ProducerCount: 1,
				}

				_, err := producer.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("interval"))
			})

			It("should reject a missing logger", func() {
				config := &producer.ServerConfig{
					RabbitMQURL:   "amqp://localhost:5672",
					QueueName:     "test-queue",
					ProducerCount: 1,
					Interval:      time.Second,
				}

				_, err := producer.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
			})
		})
	})
})
