package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertStatus статус алерта. Единственный допустимый переход:
// pending -> reviewed | dismissed | confirmed, все три терминальные.
type AlertStatus string

const (
	StatusPending   AlertStatus = "pending"
	StatusReviewed  AlertStatus = "reviewed"
	StatusDismissed AlertStatus = "dismissed"
	StatusConfirmed AlertStatus = "confirmed"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusDismissed, StatusConfirmed:
		return true
	}
	return false
}

// IsTerminal сообщает, закрыт ли алерт
func (s AlertStatus) IsTerminal() bool {
	return s == StatusReviewed || s == StatusDismissed || s == StatusConfirmed
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	return s == StatusPending && next.IsTerminal()
}

// Alert фрод-алерт. Создается менеджером алертов, меняется только через
// ревью, никогда не удаляется.
type Alert struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	AccountID  uuid.UUID     `json:"account_id" db:"account_id"`
	EntryID    uuid.UUID     `json:"entry_id" db:"entry_id"`
	AlertType  AlertType     `json:"alert_type" db:"alert_type"`
	Severity   Severity      `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	Details    SignalDetails `json:"details" db:"details"`
	Status     AlertStatus   `json:"status" db:"status"`
	Notified   bool          `json:"notified" db:"notified"`
	NotifiedAt *time.Time    `json:"notified_at,omitempty" db:"notified_at"`
	ReviewedBy *uuid.UUID    `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
	Notes      string        `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// ReviewRequest запрос на ревью алерта
type ReviewRequest struct {
	Status AlertStatus `json:"status"`
	Notes  string      `json:"notes"`
}

// ReviewResponse ответ на ревью
type ReviewResponse struct {
	Message string `json:"message"`
	Alert   *Alert `json:"alert"`
}

// AlertFilter фильтры выборки алертов
type AlertFilter struct {
	Status   AlertStatus
	Severity Severity
	Page     int
	Limit    int
}

func (f *AlertFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

// AlertListResponse страница алертов
type AlertListResponse struct {
	Alerts     []*Alert   `json:"alerts"`
	Pagination Pagination `json:"pagination"`
}

// AlertSummary сводка алертов по счету
type AlertSummary struct {
	ByStatus     map[AlertStatus]int64 `json:"by_status"`
	BySeverity   map[Severity]int64    `json:"by_severity"`
	ByType       map[AlertType]int64   `json:"by_type"`
	RecentAlerts []*Alert              `json:"recent_alerts"`
}
