package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity серьезность фрод-сигнала
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) IsValid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// AlertType тип сработавшего правила
type AlertType string

const (
	AlertHighAmount    AlertType = "high_amount"
	AlertCategoryLimit AlertType = "category_limit"
	AlertFrequency     AlertType = "frequent_transactions"
	AlertUnusualTime   AlertType = "unusual_time"
)

// SignalDetails структурированные детали сигнала
type SignalDetails struct {
	Threshold    float64  `json:"threshold,omitempty"`
	ActualAmount float64  `json:"actual_amount,omitempty"`
	Category     Category `json:"category,omitempty"`
	Percentage   int      `json:"percentage,omitempty"`
	Timeframe    string   `json:"timeframe,omitempty"`
	Hour         int      `json:"hour,omitempty"`
}

// FraudSignal эфемерный результат одного правила; не хранится сам по себе,
// а превращается в алерт и фрод-метку на записи
type FraudSignal struct {
	Type     AlertType
	Severity Severity
	Message  string
	Details  SignalDetails
}

// FraudTag фрод-метка на записи леджера, только дозапись
type FraudTag struct {
	ID        int64     `json:"id" db:"id"`
	EntryID   uuid.UUID `json:"entry_id" db:"entry_id"`
	TagType   AlertType `json:"tag_type" db:"tag_type"`
	Severity  Severity  `json:"severity" db:"severity"`
	Message   string    `json:"message" db:"message"`
	FlaggedAt time.Time `json:"flagged_at" db:"flagged_at"`
}
