package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"worktime/internal/core"
	"worktime/internal/report"
)

// errDecode marks payloads that can never be processed, so consumers drop
// them instead of requeueing.
var errDecode = errors.New("undecodable payload")

// Message kinds routed through the worktime queue.
const (
	KindRecordSaved   = "record_saved"
	KindDailyReport   = "daily_report"
	KindMonthlyReport = "monthly_report"
)

// Envelope wraps every published message so one queue can carry all kinds.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RecordSavedMessage announces that a day record was written to the store.
// It carries the full record so consumers never have to reach into the
// store's data file from another process.
type RecordSavedMessage struct {
	Date   string         `json:"date"`
	Record core.DayRecord `json:"record"`
}

// DailyReportMessage asks the delivery worker to send one day's record.
// The overtime threshold rides along because the normal/overtime split is
// applied at message-building time, never inside duration math.
type DailyReportMessage struct {
	Date                     string         `json:"date"`
	Record                   core.DayRecord `json:"record"`
	OvertimeThresholdMinutes int            `json:"overtime_threshold_minutes"`
}

// MonthlyReportMessage asks the delivery worker to send a month/project
// listing.
type MonthlyReportMessage struct {
	Year    int                 `json:"year"`
	Month   int                 `json:"month"`
	Project string              `json:"project"`
	Rows    []report.DayMinutes `json:"rows"`
}

// NewEnvelope wraps a payload for publishing.
func NewEnvelope(kind string, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return &Envelope{Kind: kind, Timestamp: time.Now(), Payload: body}, nil
}

// EnvelopeFromJSON parses a delivery body.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Kind == "" {
		return nil, fmt.Errorf("envelope without kind")
	}
	return &env, nil
}

// Decode unmarshals the payload into the kind-specific message type.
func (e *Envelope) Decode(into any) error {
	if err := json.Unmarshal(e.Payload, into); err != nil {
		return fmt.Errorf("%w: %s: %v", errDecode, e.Kind, err)
	}
	return nil
}
