// Package alerting implements the alert ingestion, retrieval and status
// workflow for the surveillance dashboard, backed by PostgreSQL.
package alerting

import "strings"

// Category classifies what an alert is about.
type Category string

// Alert categories.
const (
	CategoryIntrusion Category = "INTRUSION"
	CategoryAnomaly   Category = "ANOMALY"
	CategoryMovement  Category = "MOVEMENT"
	CategoryFire      Category = "FIRE"
	CategoryFlood     Category = "FLOOD"
	CategoryTraffic   Category = "TRAFFIC"
	CategoryViolence  Category = "VIOLENCE"
	CategoryCrowded   Category = "CROWDED"
	CategoryOther     Category = "OTHER"
	CategoryNone      Category = "NONE"
)

// Severity is the ordinal urgency classification of an alert.
type Severity string

// Alert severities, CRITICAL > HIGH > MEDIUM > LOW.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Status is the lifecycle state of an alert. Any status may transition
// to any other; RESOLVED alerts may be reopened.
type Status string

// Alert statuses.
const (
	StatusUnresolved    Status = "UNRESOLVED"
	StatusInvestigating Status = "INVESTIGATING"
	StatusResolved      Status = "RESOLVED"
)

// SensorType classifies the data source a sensor represents.
type SensorType string

// Sensor types.
const (
	SensorVideo     SensorType = "VIDEO"
	SensorThermal   SensorType = "THERMAL"
	SensorMotion    SensorType = "MOTION"
	SensorVibration SensorType = "VIBRATION"
	SensorAudio     SensorType = "AUDIO"
	SensorWeather   SensorType = "WEATHER"
)

// ZoneStatus is the operational state of a zone or sensor.
type ZoneStatus string

// Zone and sensor operational statuses.
const (
	ZoneActive      ZoneStatus = "ACTIVE"
	ZoneInactive    ZoneStatus = "INACTIVE"
	ZoneMaintenance ZoneStatus = "MAINTENANCE"
)

var categoryByName = map[string]Category{
	"intrusion": CategoryIntrusion,
	"anomaly":   CategoryAnomaly,
	"movement":  CategoryMovement,
	"fire":      CategoryFire,
	"flood":     CategoryFlood,
	"traffic":   CategoryTraffic,
	"violence":  CategoryViolence,
	"crowded":   CategoryCrowded,
	"other":     CategoryOther,
	"none":      CategoryNone,
}

// NormalizeCategory maps a free-form category string into the
// enumeration. Unrecognized values map to OTHER.
func NormalizeCategory(raw string) Category {
	if c, ok := categoryByName[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	return CategoryOther
}

// NormalizeCategories maps an inbound category list, or the legacy
// single type, into a non-empty canonical list. An event with neither
// yields [OTHER].
func NormalizeCategories(types []string, legacy string) []Category {
	if len(types) > 0 {
		out := make([]Category, len(types))
		for i, t := range types {
			out[i] = NormalizeCategory(t)
		}
		return out
	}
	if strings.TrimSpace(legacy) != "" {
		return []Category{NormalizeCategory(legacy)}
	}
	return []Category{CategoryOther}
}

// NormalizeSeverity maps a free-form severity string into the
// enumeration. Unrecognized values map to LOW.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityLow
	}
}

// NormalizeStatus maps a free-form status string into the enumeration.
// Unrecognized or missing values map to UNRESOLVED.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "unresolved":
		return StatusUnresolved
	case "investigating":
		return StatusInvestigating
	case "resolved":
		return StatusResolved
	default:
		return StatusUnresolved
	}
}

// ParseStatus validates a status value supplied by a caller. Unlike
// NormalizeStatus it does not coerce: unknown values are rejected.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusUnresolved, StatusInvestigating, StatusResolved:
		return Status(raw), true
	default:
		return "", false
	}
}
