package alerting

import "time"

// WeatherInfo is the weather sub-object exposed on alert views,
// defaulted when the snapshot carries no weather reading.
type WeatherInfo struct {
	Temp       float64 `json:"temp"`
	Conditions string  `json:"conditions"`
}

// SensorFlags summarizes which sensor kinds back an alert, derived
// from the latest snapshot payload or the linked sensors themselves.
type SensorFlags struct {
	Video     bool        `json:"video"`
	Vibration bool        `json:"vibration"`
	Thermal   bool        `json:"thermal"`
	Weather   WeatherInfo `json:"weather"`
}

// SensorSummary is the compact sensor representation embedded in
// alert list views.
type SensorSummary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     SensorType `json:"type"`
	Location string     `json:"location"`
}

// AlertView is the list representation of an alert, enriched with
// sensor-presence flags and the most recent snapshot.
type AlertView struct {
	ID          string      `json:"id"`
	Types       []Category  `json:"types"`
	Severity    Severity    `json:"severity"`
	Status      Status      `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
	Location    string      `json:"location"`
	Description string      `json:"description,omitempty"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	ZoneID      string      `json:"zoneId"`
	CityID      string      `json:"cityId"`
	SensorData  SensorFlags `json:"sensorData"`

	Sensors []SensorSummary `json:"sensors"`
}

// NewAlertView derives the enriched list view for an alert. The alert
// is expected to have Sensors and SensorData (newest first) preloaded.
func NewAlertView(alert *Alert) AlertView {
	flags := SensorFlags{
		Weather: WeatherInfo{Temp: 0, Conditions: "Unknown"},
	}

	var latest map[string]any
	if len(alert.SensorData) > 0 {
		latest = alert.SensorData[0].Payload
	}

	flags.Video = payloadFlag(latest, "video") || hasSensorType(alert.Sensors, SensorVideo)
	flags.Vibration = payloadFlag(latest, "vibration") || hasSensorType(alert.Sensors, SensorVibration)
	flags.Thermal = payloadFlag(latest, "thermal") || hasSensorType(alert.Sensors, SensorThermal)

	if weather, ok := latest["weather"].(map[string]any); ok {
		if temp, ok := weather["temp"].(float64); ok {
			flags.Weather.Temp = temp
		}
		if conditions, ok := weather["conditions"].(string); ok && conditions != "" {
			flags.Weather.Conditions = conditions
		}
	}

	sensors := make([]SensorSummary, len(alert.Sensors))
	for i, s := range alert.Sensors {
		sensors[i] = SensorSummary{
			ID:       s.ID,
			Name:     s.Name,
			Type:     s.Type,
			Location: s.Location,
		}
	}

	return AlertView{
		ID:          alert.ID,
		Types:       alert.Types,
		Severity:    alert.Severity,
		Status:      alert.Status,
		Timestamp:   alert.Timestamp,
		Location:    alert.Location,
		Description: alert.Description,
		Thumbnail:   alert.Thumbnail,
		ZoneID:      alert.ZoneID,
		CityID:      alert.CityID,
		SensorData:  flags,
		Sensors:     sensors,
	}
}

// payloadFlag reads a boolean key from a snapshot payload.
func payloadFlag(payload map[string]any, key string) bool {
	if payload == nil {
		return false
	}
	v, ok := payload[key].(bool)
	return ok && v
}

// hasSensorType reports whether any linked sensor is of the given type.
func hasSensorType(sensors []Sensor, t SensorType) bool {
	for _, s := range sensors {
		if s.Type == t {
			return true
		}
	}
	return false
}
