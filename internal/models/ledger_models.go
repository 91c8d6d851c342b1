package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind вид записи в леджере
type EntryKind string

const (
	KindInflow      EntryKind = "inflow"
	KindOutflow     EntryKind = "outflow"
	KindTransferIn  EntryKind = "transfer_in"
	KindTransferOut EntryKind = "transfer_out"
)

func (k EntryKind) IsValid() bool {
	switch k {
	case KindInflow, KindOutflow, KindTransferIn, KindTransferOut:
		return true
	}
	return false
}

// IsExpense отмечает виды записей, участвующие в правилах по расходам
func (k EntryKind) IsExpense() bool {
	return k == KindOutflow
}

// Category закрытый набор категорий транзакций
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryHealthcare    Category = "healthcare"
	CategoryUtilities     Category = "utilities"
	CategorySalary        Category = "salary"
	CategoryFreelance     Category = "freelance"
	CategoryInvestment    Category = "investment"
	CategoryTransfer      Category = "transfer"
	CategoryOther         Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryShopping, CategoryEntertainment,
		CategoryHealthcare, CategoryUtilities, CategorySalary, CategoryFreelance,
		CategoryInvestment, CategoryTransfer, CategoryOther:
		return true
	}
	return false
}

// PaymentMethod способ оплаты; wallet означает списание с баланса кошелька
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentWallet       PaymentMethod = "wallet"
	PaymentOther        PaymentMethod = "other"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentWallet, PaymentOther:
		return true
	}
	return false
}

// LedgerEntry неизменяемая запись о денежном событии. После коммита
// сумма, вид и счета не меняются; допускается только дозапись фрод-меток.
type LedgerEntry struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	AccountID     uuid.UUID     `json:"account_id" db:"account_id"`
	Kind          EntryKind     `json:"kind" db:"kind"`
	Amount        int64         `json:"amount" db:"amount"`
	Category      Category      `json:"category" db:"category"`
	Description   string        `json:"description" db:"description"`
	Merchant      string        `json:"merchant,omitempty" db:"merchant"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	OccurredAt    time.Time     `json:"occurred_at" db:"occurred_at"`
	TransferGroup *uuid.UUID    `json:"transfer_group,omitempty" db:"transfer_group"`
	Counterparty  *uuid.UUID    `json:"counterparty,omitempty" db:"counterparty"`
	RequestID     string        `json:"-" db:"request_id"`
	AICategorized bool          `json:"ai_categorized" db:"ai_categorized"`
	Confidence    float64       `json:"confidence,omitempty" db:"confidence"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`

	// заполняется при выдаче списка, в таблице записей не хранится
	FraudFlags []FraudTag `json:"fraud_flags,omitempty" db:"-"`
}

// DepositRequest запрос на пополнение кошелька
type DepositRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	RequestID   string  `json:"requestID"`
}

// DepositResponse ответ на пополнение
type DepositResponse struct {
	Message    string    `json:"message"`
	EntryID    uuid.UUID `json:"entry_id"`
	NewBalance float64   `json:"new_balance"`
}

// TransferRequest запрос на перевод между счетами
type TransferRequest struct {
	ToUsername  string  `json:"to_username"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	RequestID   string  `json:"requestID"`
}

// TransferResponse ответ на перевод
type TransferResponse struct {
	Message       string    `json:"message"`
	TransferGroup uuid.UUID `json:"transfer_group"`
	NewBalance    float64   `json:"new_balance"`
	Recipient     string    `json:"recipient"`
}

// TransactionRequest запрос на запись дохода/расхода
type TransactionRequest struct {
	Kind          EntryKind     `json:"kind"`
	Amount        float64       `json:"amount"`
	Description   string        `json:"description"`
	Category      Category      `json:"category"`
	Merchant      string        `json:"merchant"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	OccurredAt    *time.Time    `json:"occurred_at,omitempty"`
	RequestID     string        `json:"requestID"`
}

// TransactionResponse ответ на запись транзакции
type TransactionResponse struct {
	Message string       `json:"message"`
	Entry   *LedgerEntry `json:"transaction"`
}

// BalanceResponse баланс кошелька
type BalanceResponse struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// EntryFilter фильтры выборки записей леджера
type EntryFilter struct {
	Kind     EntryKind
	Category Category
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

func (f *EntryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

// EntryListResponse страница записей леджера
type EntryListResponse struct {
	Transactions []*LedgerEntry `json:"transactions"`
	Pagination   Pagination     `json:"pagination"`
}

// Pagination метаданные страницы
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// AmountToMinorUnits конвертирует сумму в основных единицах в минимальные единицы
func AmountToMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

// AmountFromMinorUnits конвертирует минимальные единицы в основные
func AmountFromMinorUnits(amount int64) float64 {
	return float64(amount) / 100.0
}
