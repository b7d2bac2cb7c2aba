package alerting_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"citywatch.dev/sentinel/internal/alerting"
)

var _ = Describe("Models", func() {
	Describe("table names", func() {
		It("should map models to their tables", func() {
			Expect(alerting.City{}.TableName()).To(Equal("cities"))
			Expect(alerting.Zone{}.TableName()).To(Equal("zones"))
			Expect(alerting.Sensor{}.TableName()).To(Equal("sensors"))
			Expect(alerting.Alert{}.TableName()).To(Equal("alerts"))
			Expect(alerting.SensorData{}.TableName()).To(Equal("sensor_data"))
			Expect(alerting.Action{}.TableName()).To(Equal("actions"))
			Expect(alerting.User{}.TableName()).To(Equal("users"))
		})
	})

	Describe("BeforeCreate", func() {
		It("should assign a UUID when no identifier is set", func() {
			alert := &alerting.Alert{}
			Expect(alert.BeforeCreate(nil)).To(Succeed())
			Expect(alert.ID).To(HaveLen(36))
		})

		It("should keep an identifier supplied by the caller", func() {
			alert := &alerting.Alert{ID: "alert-001"}
			Expect(alert.BeforeCreate(nil)).To(Succeed())
			Expect(alert.ID).To(Equal("alert-001"))
		})
	})
})

var _ = Describe("Service constructor", func() {
	It("should require a logger", func() {
		svc, err := alerting.NewService(nil, nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("logger"))
		Expect(svc).To(BeNil())
	})
})

var _ = Describe("NewAlertView", func() {
	var alert *alerting.Alert

	BeforeEach(func() {
		alert = &alerting.Alert{
			ID:        "alert-001",
			Types:     []alerting.Category{alerting.CategoryIntrusion},
			Severity:  alerting.SeverityHigh,
			Status:    alerting.StatusUnresolved,
			Timestamp: time.Date(2025, 3, 15, 8, 24, 0, 0, time.UTC),
			Location:  "North Perimeter",
		}
	})

	Context("without any snapshot or sensors", func() {
		It("should default every flag and the weather sub-object", func() {
			view := alerting.NewAlertView(alert)

			Expect(view.SensorData.Video).To(BeFalse())
			Expect(view.SensorData.Vibration).To(BeFalse())
			Expect(view.SensorData.Thermal).To(BeFalse())
			Expect(view.SensorData.Weather.Temp).To(BeZero())
			Expect(view.SensorData.Weather.Conditions).To(Equal("Unknown"))
		})
	})

	Context("with a snapshot payload", func() {
		It("should derive flags and weather from the latest snapshot", func() {
			alert.SensorData = []alerting.SensorData{
				{
					Payload: map[string]any{
						"video":     true,
						"vibration": true,
						"weather":   map[string]any{"temp": 18.0, "conditions": "Clear"},
					},
				},
				{
					// Older snapshot, must be ignored.
					Payload: map[string]any{"thermal": true},
				},
			}

			view := alerting.NewAlertView(alert)

			Expect(view.SensorData.Video).To(BeTrue())
			Expect(view.SensorData.Vibration).To(BeTrue())
			Expect(view.SensorData.Thermal).To(BeFalse())
			Expect(view.SensorData.Weather.Temp).To(Equal(18.0))
			Expect(view.SensorData.Weather.Conditions).To(Equal("Clear"))
		})
	})

	Context("with linked sensors but no snapshot", func() {
		It("should derive flags from sensor type presence", func() {
			alert.Sensors = []alerting.Sensor{
				{ID: "s1", Type: alerting.SensorThermal, Location: "Thermal Sensor A"},
			}

			view := alerting.NewAlertView(alert)

			Expect(view.SensorData.Thermal).To(BeTrue())
			Expect(view.SensorData.Video).To(BeFalse())
			Expect(view.Sensors).To(HaveLen(1))
			Expect(view.Sensors[0].Type).To(Equal(alerting.SensorThermal))
		})
	})
})

var _ = Describe("RawEvent", func() {
	It("should carry the heterogeneous inbound shapes", func() {
		event := alerting.RawEvent{
			Types:     []string{"intrusion"},
			Severity:  "high",
			Location:  "North Perimeter",
			Timestamp: time.Date(2025, 3, 15, 8, 24, 0, 0, time.UTC),
			SensorData: map[string]any{
				"video":   true,
				"weather": map[string]any{"temp": 18.0, "conditions": "Clear"},
			},
		}

		Expect(event.Types).To(ConsistOf("intrusion"))
		Expect(event.SensorData).To(HaveKey("weather"))
	})
})
