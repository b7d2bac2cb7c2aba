package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// Sentinel errors surfaced to the API layer.
var (
	ErrAlertNotFound  = errors.New("alert not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrNoAssignedCity = errors.New("user has no assigned city")
)

// Timeframes accepted by List. "all" disables the time filter; anything
// unrecognized falls back to the 24h default.
var timeframes = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// DefaultTimeframe is applied when no timeframe is supplied.
const DefaultTimeframe = "24h"

// RawEvent is the heterogeneous inbound alert representation delivered
// by the live feed or the ingestion endpoint. Normalization never
// fails: absent or malformed values fall back to defaults.
type RawEvent struct {
	Types       []string       `json:"types,omitempty"`
	Type        string         `json:"type,omitempty"` // legacy single-category form
	Severity    string         `json:"severity"`
	Status      string         `json:"status,omitempty"`
	Timestamp   time.Time      `json:"timestamp,omitempty"`
	Location    string         `json:"location"`
	Description string         `json:"description,omitempty"`
	Thumbnail   string         `json:"thumbnail,omitempty"`
	SensorData  map[string]any `json:"sensorData,omitempty"`
}

// Service implements the alerting domain operations on top of the
// relational store.
type Service struct {
	logger *slog.Logger
	db     *gorm.DB
}

// NewService creates a new Service instance.
func NewService(logger *slog.Logger, db *gorm.DB) (*Service, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	return &Service{logger: logger, db: db}, nil
}

// Ingest normalizes a raw event, resolves its sensor and persists the
// alert with an optional sensor-data snapshot. All writes happen in a
// single transaction, so a failure leaves no partial state behind.
func (s *Service) Ingest(ctx context.Context, event RawEvent, zoneID, cityID string) (*Alert, error) {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	alert := &Alert{
		Types:       NormalizeCategories(event.Types, event.Type),
		Severity:    NormalizeSeverity(event.Severity),
		Status:      NormalizeStatus(event.Status),
		Timestamp:   timestamp.UTC(),
		Location:    event.Location,
		Description: event.Description,
		Thumbnail:   event.Thumbnail,
		ZoneID:      zoneID,
		CityID:      cityID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sensor, err := resolveSensor(tx, event.Location, zoneID, cityID)
		if err != nil {
			return err
		}

		alert.Sensors = []Sensor{*sensor}
		if err := tx.Create(alert).Error; err != nil {
			return fmt.Errorf("alert creation failed: %w", err)
		}

		if len(event.SensorData) > 0 {
			snapshot := &SensorData{
				SensorID:  sensor.ID,
				AlertID:   alert.ID,
				Payload:   event.SensorData,
				Timestamp: alert.Timestamp,
			}
			if err := tx.Create(snapshot).Error; err != nil {
				return fmt.Errorf("sensor data creation failed: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("alert ingested",
		"alert_id", alert.ID,
		"severity", alert.Severity,
		"location", alert.Location,
	)

	return alert, nil
}

// ListParams are the filters accepted by List. Zero values mean
// "no filter"; Timeframe defaults to 24h and Limit to 50.
type ListParams struct {
	Status    string
	Severity  string
	CityID    string
	ZoneID    string
	Timeframe string
	Limit     int
	Offset    int
}

// ListResult carries a page of alert views plus pagination metadata.
// Total is computed independent of limit/offset.
type ListResult struct {
	Alerts    []AlertView
	Total     int64
	Offset    int
	Limit     int
	Timeframe string
	Generated time.Time
}

// List returns alerts newest first, filtered and paginated, each
// enriched with sensor-presence flags and its latest snapshot.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	timeframe := params.Timeframe
	if _, ok := timeframes[timeframe]; !ok && timeframe != "all" {
		timeframe = DefaultTimeframe
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&Alert{})
	if params.Status != "" {
		query = query.Where("status = ?", NormalizeStatus(params.Status))
	}
	if params.Severity != "" {
		query = query.Where("severity = ?", NormalizeSeverity(params.Severity))
	}
	if params.CityID != "" {
		query = query.Where("city_id = ?", params.CityID)
	}
	if params.ZoneID != "" {
		query = query.Where("zone_id = ?", params.ZoneID)
	}
	if window, ok := timeframes[timeframe]; ok {
		query = query.Where("timestamp >= ?", time.Now().UTC().Add(-window))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("alert count failed: %w", err)
	}

	var alerts []Alert
	err := query.
		Preload("Sensors").
		Preload("SensorData", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC")
		}).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("alert query failed: %w", err)
	}

	views := make([]AlertView, len(alerts))
	for i := range alerts {
		views[i] = NewAlertView(&alerts[i])
	}

	return &ListResult{
		Alerts:    views,
		Total:     total,
		Offset:    offset,
		Limit:     limit,
		Timeframe: timeframe,
		Generated: time.Now().UTC(),
	}, nil
}

// Get returns the full alert with its zone, city, sensors, the latest
// 100 sensor-data rows and all audit actions, newest first.
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	var alert Alert
	err := s.db.WithContext(ctx).
		Preload("Zone").
		Preload("City").
		Preload("Sensors").
		Preload("SensorData", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC").Limit(100)
		}).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC")
		}).
		First(&alert, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("alert fetch failed: %w", err)
	}
	return &alert, nil
}

// UpdateStatus transitions an alert to the target status and appends a
// STATUS_CHANGE audit action. Any enumerated status may be the target;
// the update and the audit row commit atomically.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, comment, performedBy string) (*Alert, error) {
	description := comment
	if description == "" {
		description = fmt.Sprintf("Alert status changed to %s", status)
	}
	if performedBy == "" {
		performedBy = "Unknown user"
	}

	var alert Alert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&alert, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return fmt.Errorf("alert fetch failed: %w", err)
		}

		if err := tx.Model(&alert).Update("status", status).Error; err != nil {
			return fmt.Errorf("status update failed: %w", err)
		}

		action := &Action{
			AlertID:     alert.ID,
			ActionType:  ActionStatusChange,
			Description: description,
			PerformedBy: performedBy,
		}
		if err := tx.Create(action).Error; err != nil {
			return fmt.Errorf("action creation failed: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("alert status updated",
		"alert_id", alert.ID,
		"status", status,
		"performed_by", performedBy,
	)

	return &alert, nil
}

// DefaultZone returns the oldest zone of a city, creating the default
// zone on first access. The second return reports whether the zone was
// created by this call.
func (s *Service) DefaultZone(ctx context.Context, cityID string) (*Zone, bool, error) {
	var zone Zone
	err := s.db.WithContext(ctx).
		Where("city_id = ?", cityID).
		Order("created_at ASC").
		First(&zone).Error
	if err == nil {
		return &zone, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("zone lookup failed: %w", err)
	}

	zone = Zone{
		Name:        "Default Zone",
		Description: "Automatically created for security monitoring",
		Status:      ZoneActive,
		CityID:      cityID,
	}
	if err := s.db.WithContext(ctx).Create(&zone).Error; err != nil {
		return nil, false, fmt.Errorf("zone creation failed: %w", err)
	}

	s.logger.Info("default zone created", "zone_id", zone.ID, "city_id", cityID)
	return &zone, true, nil
}

// UserCity returns the city the user identified by email is scoped to.
func (s *Service) UserCity(ctx context.Context, email string) (string, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("user fetch failed: %w", err)
	}
	if user.CityID == nil || *user.CityID == "" {
		return "", ErrNoAssignedCity
	}
	return *user.CityID, nil
}
