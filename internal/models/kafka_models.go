package models

import (
	"time"

	"github.com/google/uuid"
)

// событие о созданном фрод-алерте для сервиса уведомлений
type FraudAlertEvent struct {
	AlertID   uuid.UUID `json:"alert_id"`   // ID алерта
	AccountID uuid.UUID `json:"account_id"` // ID счета
	Email     string    `json:"email"`      // Куда отправить уведомление
	EntryID   uuid.UUID `json:"entry_id"`   // Запись леджера, вызвавшая алерт
	AlertType AlertType `json:"alert_type"` // Тип правила
	Severity  Severity  `json:"severity"`   // Серьезность
	Message   string    `json:"message"`    // Человекочитаемое описание
	Amount    float64   `json:"amount"`     // Сумма записи
	Timestamp time.Time `json:"timestamp"`  // Время создания алерта
}
