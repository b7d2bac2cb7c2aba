package alerting

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sensorKeywords maps location keywords to sensor types, checked in
// this fixed priority order. Anything unmatched defaults to VIDEO.
var sensorKeywords = []struct {
	keywords []string
	typ      SensorType
}{
	{[]string{"camera", "video"}, SensorVideo},
	{[]string{"thermal"}, SensorThermal},
	{[]string{"motion"}, SensorMotion},
	{[]string{"vibration"}, SensorVibration},
	{[]string{"audio"}, SensorAudio},
	{[]string{"weather"}, SensorWeather},
}

// InferSensorType derives a sensor type from keyword presence in the
// location string. The first keyword match wins; unmatched locations
// default to VIDEO.
func InferSensorType(location string) SensorType {
	loc := strings.ToLower(location)
	for _, entry := range sensorKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(loc, kw) {
				return entry.typ
			}
		}
	}
	return SensorVideo
}

// normalizeLocation canonicalizes a location string for the sensor
// uniqueness constraint.
func normalizeLocation(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}

// resolveSensor returns an existing sensor for the location within the
// zone/city scope, or creates one. The lookup is a case-insensitive
// substring containment match on stored location text, oldest first so
// repeated resolution is deterministic. Creation goes through an
// ON CONFLICT upsert on (zone, city, normalized location), so a
// concurrent resolver of the same new location converges on one row.
func resolveSensor(tx *gorm.DB, location, zoneID, cityID string) (*Sensor, error) {
	normalized := normalizeLocation(location)
	if normalized == "" {
		return nil, errors.New("sensor location cannot be empty")
	}

	var sensor Sensor
	err := tx.
		Where("zone_id = ? AND city_id = ?", zoneID, cityID).
		Where("normalized_location LIKE ?", "%"+normalized+"%").
		Order("created_at ASC").
		First(&sensor).Error
	if err == nil {
		return &sensor, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sensor lookup failed: %w", err)
	}

	typ := InferSensorType(location)
	sensor = Sensor{
		Name:               fmt.Sprintf("%s Sensor - %s", sensorDisplayName(typ), location),
		Type:               typ,
		Status:             ZoneActive,
		Location:           location,
		NormalizedLocation: normalized,
		Description:        fmt.Sprintf("Automatically created from alert feed for location %q", location),
		ZoneID:             zoneID,
		CityID:             cityID,
	}

	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "zone_id"},
			{Name: "city_id"},
			{Name: "normalized_location"},
		},
		DoNothing: true,
	}).Create(&sensor)
	if result.Error != nil {
		return nil, fmt.Errorf("sensor creation failed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Lost the race to a concurrent resolver; fetch the winner.
		err := tx.
			Where("zone_id = ? AND city_id = ? AND normalized_location = ?", zoneID, cityID, normalized).
			First(&sensor).Error
		if err != nil {
			return nil, fmt.Errorf("sensor re-fetch after conflict failed: %w", err)
		}
	}

	return &sensor, nil
}

// sensorDisplayName renders a sensor type for derived sensor names.
func sensorDisplayName(t SensorType) string {
	s := strings.ToLower(string(t))
	if s == "" {
		return "Video"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
