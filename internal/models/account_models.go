package models

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Account представляет счет пользователя вместе с кошельком и
// настройками уведомлений. Баланс изменяется только координатором переводов.
type Account struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Username           string    `json:"username" db:"username"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	Currency           string    `json:"currency" db:"currency"`
	Balance            int64     `json:"balance" db:"balance"`
	Version            int64     `json:"version" db:"version"`
	FraudAlerts        bool      `json:"fraud_alerts" db:"fraud_alerts"`
	EmailNotifications bool      `json:"email_notifications" db:"email_notifications"`
	MonthlyLimit       int64     `json:"monthly_limit" db:"monthly_limit"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// NotificationsEnabled сообщает, хочет ли владелец счета получать
// уведомления о фрод-алертах.
func (a *Account) NotificationsEnabled() bool {
	return a.FraudAlerts && a.EmailNotifications
}

// Currency типы
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyRUB Currency = "RUB"
	CurrencyEUR Currency = "EUR"
)

// IsValid проверяет валидность валюты
func (c Currency) IsValid() bool {
	return c == CurrencyUSD || c == CurrencyRUB || c == CurrencyEUR
}

// RegisterRequest запрос на регистрацию
type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Password string   `json:"password" validate:"required,min=6"`
	Email    string   `json:"email" validate:"required,email"`
	Currency Currency `json:"currency"`
}

// RegisterResponse ответ на регистрацию
type RegisterResponse struct {
	Message string `json:"message"`
}

// LoginRequest запрос на авторизацию
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse ответ на авторизацию
type LoginResponse struct {
	Token string `json:"token"`
}

// JWTClaims кастомные claims для JWT токена
type JWTClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username"`
	jwt.RegisteredClaims
}

func (r RegisterRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	if len(r.Username) < 3 || len(r.Username) > 50 {
		return errors.New("username must be 3-50 characters")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// CategoryLimit месячный лимит расходов по категории (в минимальных единицах)
type CategoryLimit struct {
	Category Category `json:"category" db:"category"`
	Limit    int64    `json:"limit" db:"monthly_limit"`
}

// SetLimitsRequest запрос на установку лимитов расходов. MonthlyLimit
// общий месячный потолок счета, nil означает "не менять"
type SetLimitsRequest struct {
	Limits       map[Category]float64 `json:"limits"`
	MonthlyLimit *float64             `json:"monthly_limit,omitempty"`
}

// LimitsResponse текущие лимиты счета: общий месячный и по категориям
type LimitsResponse struct {
	MonthlyLimit float64              `json:"monthly_limit"`
	Limits       map[Category]float64 `json:"limits"`
}
