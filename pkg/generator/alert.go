// Package generator produces synthetic raw alert events for demos and
// load testing.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Event is the raw alert shape published to the feed queue.
type Event struct {
	Types       []string       `json:"types"`
	Severity    string         `json:"severity"`
	Timestamp   time.Time      `json:"timestamp"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	SensorData  map[string]any `json:"sensorData,omitempty"`
}

var categories = []string{
	"intrusion", "anomaly", "movement", "fire", "flood",
	"traffic", "violence", "crowded", "other",
}

// severities are weighted so most synthetic traffic is routine.
var severities = []struct {
	value  string
	weight int
}{
	{"low", 50},
	{"medium", 30},
	{"high", 15},
	{"critical", 5},
}

var locationFormats = []string{
	"Camera %d - %s",
	"Thermal Sensor %d - %s",
	"Motion Detector %d - %s",
	"Vibration Sensor %d - %s",
	"Audio Monitor %d - %s",
	"Weather Station %d - %s",
}

// AlertGenerator produces randomized alert events for a fixed pool of
// locations, so repeated events exercise sensor reuse downstream.
type AlertGenerator struct {
	locations []string
}

// NewAlertGenerator creates a generator with the given number of
// distinct locations. Counts below one default to eight.
func NewAlertGenerator(locationCount int) *AlertGenerator {
	if locationCount < 1 {
		locationCount = 8
	}

	locations := make([]string, 0, locationCount)
	for i := 0; i < locationCount; i++ {
		format := locationFormats[rand.Intn(len(locationFormats))] // #nosec G404 - weak random is acceptable for test data generation
		locations = append(locations, fmt.Sprintf(format, i+1, gofakeit.Street()))
	}

	return &AlertGenerator{locations: locations}
}

// Locations returns the generator's fixed location pool.
func (g *AlertGenerator) Locations() []string {
	return g.locations
}

// RandomEvent generates one synthetic alert event at the given time.
func (g *AlertGenerator) RandomEvent(t time.Time) *Event {
	location := g.locations[rand.Intn(len(g.locations))] // #nosec G404

	category := categories[rand.Intn(len(categories))] // #nosec G404
	types := []string{category}
	// Occasionally tag a second category.
	if rand.Float64() < 0.2 { // #nosec G404
		second := categories[rand.Intn(len(categories))] // #nosec G404
		if second != category {
			types = append(types, second)
		}
	}

	return &Event{
		Types:       types,
		Severity:    randomSeverity(),
		Timestamp:   t,
		Location:    location,
		Description: fmt.Sprintf("%s reported near %s", gofakeit.HackerPhrase(), location),
		SensorData:  randomSensorData(),
	}
}

// randomSeverity picks a severity according to the weights above.
func randomSeverity() string {
	total := 0
	for _, s := range severities {
		total += s.weight
	}

	n := rand.Intn(total) // #nosec G404
	for _, s := range severities {
		if n < s.weight {
			return s.value
		}
		n -= s.weight
	}
	return severities[0].value
}

// randomSensorData builds a reading snapshot with the boolean presence
// flags and an occasional weather block.
func randomSensorData() map[string]any {
	data := map[string]any{
		"video":     rand.Float64() < 0.7, // #nosec G404
		"vibration": rand.Float64() < 0.3, // #nosec G404
		"thermal":   rand.Float64() < 0.4, // #nosec G404
	}

	if rand.Float64() < 0.5 { // #nosec G404
		data["weather"] = map[string]any{
			"temp":       float64(gofakeit.Number(-10, 40)),
			"conditions": gofakeit.RandomString([]string{"Clear", "Cloudy", "Rain", "Fog", "Snow"}),
		}
	}

	return data
}
