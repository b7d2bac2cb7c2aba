package alerting

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// City is the top-level administrative grouping.
type City struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Region    string    `json:"region,omitempty"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
	Zones     []Zone    `json:"zones,omitempty"`
	Users     []User    `json:"-"`
}

// TableName specifies the table name for City model.
func (City) TableName() string {
	return "cities"
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (c *City) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Zone is an administrative grouping of sensors within a city. Every
// city gets a default zone lazily created on first access.
type Zone struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description,omitempty"`
	Status      ZoneStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`
	CityID      string     `gorm:"size:36;index;not null" json:"cityId"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	Sensors     []Sensor   `json:"sensors,omitempty"`
}

// TableName specifies the table name for Zone model.
func (Zone) TableName() string {
	return "zones"
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (z *Zone) BeforeCreate(*gorm.DB) error {
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	return nil
}

// Sensor is a named, typed data source at a location within a zone.
// Sensors are created lazily during ingestion; the unique index on
// (zone, city, normalized location) backs the create-or-reuse upsert
// so concurrent ingestion cannot create duplicates.
type Sensor struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	Name               string     `gorm:"not null" json:"name"`
	Type               SensorType `gorm:"size:16;not null;default:VIDEO" json:"type"`
	Status             ZoneStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`
	Location           string     `gorm:"not null" json:"location"`
	NormalizedLocation string     `gorm:"size:255;uniqueIndex:idx_sensor_scope_location,priority:3;not null" json:"-"`
	Description        string     `json:"description,omitempty"`
	ZoneID             string     `gorm:"size:36;uniqueIndex:idx_sensor_scope_location,priority:1;not null" json:"zoneId"`
	CityID             string     `gorm:"size:36;uniqueIndex:idx_sensor_scope_location,priority:2;index;not null" json:"cityId"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	Alerts             []Alert    `gorm:"many2many:alert_sensors" json:"-"`
}

// TableName specifies the table name for Sensor model.
func (Sensor) TableName() string {
	return "sensors"
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (s *Sensor) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Alert is a recorded security event. Status is always one of the
// three enumerated values and the category list is non-empty.
type Alert struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	Types       []Category   `gorm:"serializer:json;type:jsonb;not null" json:"types"`
	Severity    Severity     `gorm:"size:16;index;not null" json:"severity"`
	Status      Status       `gorm:"size:16;index;not null;default:UNRESOLVED" json:"status"`
	Timestamp   time.Time    `gorm:"index:idx_alert_timestamp;not null" json:"timestamp"`
	Location    string       `json:"location"`
	Description string       `json:"description,omitempty"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	ZoneID      string       `gorm:"size:36;index;not null" json:"zoneId"`
	CityID      string       `gorm:"size:36;index;not null" json:"cityId"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
	Zone        *Zone        `json:"zone,omitempty"`
	City        *City        `json:"city,omitempty"`
	Sensors     []Sensor     `gorm:"many2many:alert_sensors" json:"sensors,omitempty"`
	SensorData  []SensorData `json:"sensorData,omitempty"`
	Actions     []Action     `json:"actions,omitempty"`
}

// TableName specifies the table name for Alert model.
func (Alert) TableName() string {
	return "alerts"
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (a *Alert) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// SensorData is a structured reading snapshot captured alongside an
// ingested alert. Rows are created once and never mutated.
type SensorData struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	SensorID  string         `gorm:"size:36;index;not null" json:"sensorId"`
	AlertID   string         `gorm:"size:36;index;not null" json:"alertId"`
	Payload   map[string]any `gorm:"serializer:json;type:jsonb" json:"payload"`
	Timestamp time.Time      `gorm:"index;not null" json:"timestamp"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name for SensorData model.
func (SensorData) TableName() string {
	return "sensor_data"
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (d *SensorData) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// ActionStatusChange is the audit action type recorded for status
// transitions.
const ActionStatusChange = "STATUS_CHANGE"

// Action is an append-only audit log entry for a change made to an
// alert. Actions are never updated or deleted.
type Action struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	AlertID     string    `gorm:"size:36;index;not null" json:"alertId"`
	ActionType  string    `gorm:"size:32;not null" json:"actionType"`
	Description string    `json:"description"`
	PerformedBy string    `gorm:"not null" json:"performedBy"`
	Timestamp   time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

// TableName specifies the table name for Action model.
func (Action) TableName() string {
	return "actions"
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (a *Action) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// User is an identity record holding the city a viewer is scoped to.
// Token issuance is owned by the external identity provider; this
// table only maps identities to cities.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name,omitempty"`
	CityID    *string   `gorm:"size:36;index" json:"cityId,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
