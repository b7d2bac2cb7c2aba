// Package feed consumes live alert frames from the message queue and
// persists them through the alerting service.
package feed

import (
	"errors"
	"strings"

	"citywatch.dev/sentinel/internal/alerting"
)

// Frame types delivered by the live feed.
const (
	FrameConnectionEstablished = "connection_established"
	FrameAlert                 = "alert"
	FrameError                 = "error"
)

// Frame is the JSON envelope delivered by the alert-producing service.
// The Type discriminator selects which of the optional fields is set.
type Frame struct {
	Type    string             `json:"type"`
	Message string             `json:"message,omitempty"`
	Data    *alerting.RawEvent `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

var (
	errMissingData     = errors.New("alert frame carries no data")
	errMissingCategory = errors.New("alert frame carries no type")
	errMissingSeverity = errors.New("alert frame carries no severity")
	errMissingLocation = errors.New("alert frame carries no location")
)

// validateAlert checks that an alert frame carries the fields the feed
// contract requires before it is handed to normalization. Normalization
// itself never rejects; this is the only gate.
func validateAlert(frame *Frame) error {
	if frame.Data == nil {
		return errMissingData
	}
	if len(frame.Data.Types) == 0 && strings.TrimSpace(frame.Data.Type) == "" {
		return errMissingCategory
	}
	if strings.TrimSpace(frame.Data.Severity) == "" {
		return errMissingSeverity
	}
	if strings.TrimSpace(frame.Data.Location) == "" {
		return errMissingLocation
	}
	return nil
}
