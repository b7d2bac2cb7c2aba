package alerting_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"citywatch.dev/sentinel/internal/alerting"
)

var _ = Describe("Sensor type inference", func() {
	DescribeTable("should infer the type from location keywords",
		func(location string, expected alerting.SensorType) {
			Expect(alerting.InferSensorType(location)).To(Equal(expected))
		},
		Entry("camera keyword", "Camera 3", alerting.SensorVideo),
		Entry("video keyword", "North Gate video feed", alerting.SensorVideo),
		Entry("thermal keyword", "Thermal Sensor A", alerting.SensorThermal),
		Entry("motion keyword", "motion detector basement", alerting.SensorMotion),
		Entry("vibration keyword", "Vibration pad, west fence", alerting.SensorVibration),
		Entry("audio keyword", "Audio pickup lobby", alerting.SensorAudio),
		Entry("weather keyword", "weather station roof", alerting.SensorWeather),
		Entry("unmatched defaults to video", "North Perimeter", alerting.SensorVideo),
		Entry("empty defaults to video", "", alerting.SensorVideo),
	)

	It("should honor the fixed priority order when keywords overlap", func() {
		// "camera" is checked before "thermal", so a location naming both
		// resolves to VIDEO.
		Expect(alerting.InferSensorType("thermal camera tower")).
			To(Equal(alerting.SensorVideo))
	})
})
