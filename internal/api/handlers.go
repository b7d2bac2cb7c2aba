package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"citywatch.dev/sentinel/internal/alerting"
	"citywatch.dev/sentinel/internal/notify"
	"citywatch.dev/sentinel/pkg/metrics"
)

var errDispatchUnconfigured = errors.New("notification dispatch is not configured")

// Handler serves the alerting HTTP API.
type Handler struct {
	logger       *slog.Logger
	service      *alerting.Service
	dispatcher   *notify.Dispatcher
	notifyAPIKey string
	metrics      *metrics.APIMetrics
}

// HandlerConfig holds dependencies for a Handler.
type HandlerConfig struct {
	Logger       *slog.Logger
	Service      *alerting.Service
	Dispatcher   *notify.Dispatcher // nil disables POST /api/notifications
	NotifyAPIKey string
	Metrics      *metrics.APIMetrics
}

// NewHandler creates the API handler.
func NewHandler(config *HandlerConfig) (*Handler, error) {
	if config == nil {
		return nil, errors.New("handler config cannot be nil")
	}
	if config.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.Service == nil {
		return nil, errors.New("alerting service cannot be nil")
	}
	return &Handler{
		logger:       config.Logger,
		service:      config.Service,
		dispatcher:   config.Dispatcher,
		notifyAPIKey: config.NotifyAPIKey,
		metrics:      config.Metrics,
	}, nil
}

// listAlertsResponse is the GET /api/alerts payload.
type listAlertsResponse struct {
	Alerts []alerting.AlertView `json:"alerts"`
	Meta   listAlertsMeta       `json:"meta"`
}

type listAlertsMeta struct {
	Total     int64     `json:"total"`
	Offset    int       `json:"offset"`
	Limit     int       `json:"limit"`
	Timeframe string    `json:"timeframe"`
	Generated time.Time `json:"generated"`
}

// ListAlerts handles GET /api/alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	result, err := h.service.List(r.Context(), alerting.ListParams{
		Status:    q.Get("status"),
		Severity:  q.Get("severity"),
		CityID:    q.Get("cityId"),
		ZoneID:    q.Get("zoneId"),
		Timeframe: q.Get("timeframe"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		JSONError(w, NewInternalError(err))
		return
	}

	OK(w, listAlertsResponse{
		Alerts: result.Alerts,
		Meta: listAlertsMeta{
			Total:     result.Total,
			Offset:    result.Offset,
			Limit:     result.Limit,
			Timeframe: result.Timeframe,
			Generated: result.Generated,
		},
	})
}

// createAlertRequest is the POST /api/alerts body.
type createAlertRequest struct {
	Alert  *alerting.RawEvent `json:"alert"`
	ZoneID string             `json:"zoneId"`
	CityID string             `json:"cityId"`
}

// createAlertResponse is the POST /api/alerts payload.
type createAlertResponse struct {
	Success   bool      `json:"success"`
	AlertID   string    `json:"alertId"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateAlert handles POST /api/alerts.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("Invalid JSON body"))
		return
	}
	if req.Alert == nil {
		JSONError(w, NewBadRequest("Missing required field: alert"))
		return
	}
	if req.ZoneID == "" {
		JSONError(w, NewBadRequest("Missing required field: zoneId"))
		return
	}
	if req.CityID == "" {
		JSONError(w, NewBadRequest("Missing required field: cityId"))
		return
	}

	alert, err := h.service.Ingest(r.Context(), *req.Alert, req.ZoneID, req.CityID)
	if err != nil {
		h.logger.Error("failed to ingest alert", "error", err)
		JSONError(w, NewInternalError(err))
		return
	}

	if h.metrics != nil {
		h.metrics.AlertsIngested.WithLabelValues(string(alert.Severity)).Inc()
	}

	Created(w, createAlertResponse{
		Success:   true,
		AlertID:   alert.ID,
		Timestamp: alert.Timestamp,
	})
}

// GetAlert handles GET /api/alerts/{id}.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrAlertNotFound) {
			JSONError(w, ErrAlertNotFound)
			return
		}
		h.logger.Error("failed to fetch alert", "alert_id", id, "error", err)
		JSONError(w, NewInternalError(err))
		return
	}

	OK(w, alert)
}

// updateStatusRequest is the PATCH /api/alerts/{id}/status body.
type updateStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

// UpdateAlertStatus handles PATCH /api/alerts/{id}/status.
func (h *Handler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("Invalid JSON body"))
		return
	}

	status, ok := alerting.ParseStatus(req.Status)
	if !ok {
		JSONError(w, NewValidationError("status must be one of UNRESOLVED, INVESTIGATING, RESOLVED"))
		return
	}

	performedBy := GetEmail(r.Context())

	alert, err := h.service.UpdateStatus(r.Context(), id, status, req.Comment, performedBy)
	if err != nil {
		if errors.Is(err, alerting.ErrAlertNotFound) {
			JSONError(w, ErrAlertNotFound)
			return
		}
		h.logger.Error("failed to update alert status", "alert_id", id, "error", err)
		JSONError(w, NewInternalError(err))
		return
	}

	if h.metrics != nil {
		h.metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	}

	OK(w, alert)
}

// defaultZoneResponse is the GET /api/zones/default payload.
type defaultZoneResponse struct {
	Success bool   `json:"success"`
	ZoneID  string `json:"zoneId"`
	Name    string `json:"name"`
	IsNew   bool   `json:"isNew"`
}

// DefaultZone handles GET /api/zones/default.
func (h *Handler) DefaultZone(w http.ResponseWriter, r *http.Request) {
	cityID := r.URL.Query().Get("cityId")
	if cityID == "" {
		JSONError(w, NewBadRequest("Missing required query parameter: cityId"))
		return
	}

	zone, isNew, err := h.service.DefaultZone(r.Context(), cityID)
	if err != nil {
		h.logger.Error("failed to resolve default zone", "city_id", cityID, "error", err)
		JSONError(w, NewInternalError(err))
		return
	}

	OK(w, defaultZoneResponse{
		Success: true,
		ZoneID:  zone.ID,
		Name:    zone.Name,
		IsNew:   isNew,
	})
}

// UserCity handles GET /api/user/city. The authenticated caller's email
// is used unless an explicit email override is supplied.
func (h *Handler) UserCity(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		email = GetEmail(r.Context())
	}
	if email == "" {
		JSONError(w, NewBadRequest("No email available for city lookup"))
		return
	}

	cityID, err := h.service.UserCity(r.Context(), email)
	if err != nil {
		if errors.Is(err, alerting.ErrUserNotFound) || errors.Is(err, alerting.ErrNoAssignedCity) {
			JSONError(w, ErrCityNotAssigned)
			return
		}
		h.logger.Error("failed to resolve user city", "error", err)
		JSONError(w, NewInternalError(err))
		return
	}

	OK(w, map[string]string{"cityId": cityID})
}

// notificationRequest is the POST /api/notifications body.
type notificationRequest struct {
	APIKey string `json:"apiKey"`
	notify.Request
}

// notificationResponse is the POST /api/notifications payload.
type notificationResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Results *notify.Result `json:"results"`
}

// SendNotification handles POST /api/notifications.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("Invalid JSON body"))
		return
	}

	if h.notifyAPIKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.notifyAPIKey)) != 1 {
		JSONError(w, ErrInvalidAPIKey)
		return
	}

	if h.dispatcher == nil {
		h.logger.Error("notification request received but dispatch is not configured")
		JSONError(w, NewInternalError(errDispatchUnconfigured))
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), &req.Request)
	if err != nil {
		JSONError(w, NewValidationError(err.Error()))
		return
	}

	OK(w, notificationResponse{
		Success: true,
		Message: "Notification(s) sent",
		Results: result,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]string{"status": "ok"})
}
