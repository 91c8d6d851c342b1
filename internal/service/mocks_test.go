package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"gw-ledger/internal/categorizer"
	"gw-ledger/internal/models"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateTx(ctx context.Context, tx pgx.Tx, account *models.Account) (*models.Account, error) {
	args := m.Called(ctx, tx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetBalanceForUpdateTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, newBalance int64) error {
	args := m.Called(ctx, tx, accountID, newBalance)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) UpsertCategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category, limit int64) error {
	args := m.Called(ctx, accountID, category, limit)
	return args.Error(0)
}

func (m *MockAccountRepository) GetCategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category) (int64, error) {
	args := m.Called(ctx, accountID, category)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) GetCategoryLimits(ctx context.Context, accountID uuid.UUID) ([]models.CategoryLimit, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CategoryLimit), args.Error(1)
}

func (m *MockAccountRepository) UpdateMonthlyLimit(ctx context.Context, accountID uuid.UUID, limit int64) error {
	args := m.Called(ctx, accountID, limit)
	return args.Error(0)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) CreateEntryTx(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetByRequestID(ctx context.Context, accountID uuid.UUID, requestID string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) List(ctx context.Context, accountID uuid.UUID, filter models.EntryFilter) ([]*models.LedgerEntry, int64, error) {
	args := m.Called(ctx, accountID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) CreateFraudTag(ctx context.Context, entryID uuid.UUID, tagType models.AlertType, severity models.Severity, message string) error {
	args := m.Called(ctx, entryID, tagType, severity, message)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetFraudTags(ctx context.Context, entryIDs []uuid.UUID) (map[uuid.UUID][]models.FraudTag, error) {
	args := m.Called(ctx, entryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]models.FraudTag), args.Error(1)
}

func (m *MockLedgerRepository) AvgMonthlyExpense(ctx context.Context, accountID uuid.UUID, before time.Time) (float64, int64, error) {
	args := m.Called(ctx, accountID, before)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) CategoryExpenseTotal(ctx context.Context, accountID uuid.UUID, category models.Category, from, to time.Time) (int64, error) {
	args := m.Called(ctx, accountID, category, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) CountRecentEntries(ctx context.Context, accountID uuid.UUID, since time.Time, exclude uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID, since, exclude)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) CountNightEntries(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) GetByID(ctx context.Context, accountID, alertID uuid.UUID) (*models.Alert, error) {
	args := m.Called(ctx, accountID, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertRepository) List(ctx context.Context, accountID uuid.UUID, filter models.AlertFilter) ([]*models.Alert, int64, error) {
	args := m.Called(ctx, accountID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.Alert), args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertRepository) MarkNotified(ctx context.Context, alertID uuid.UUID) error {
	args := m.Called(ctx, alertID)
	return args.Error(0)
}

func (m *MockAlertRepository) Review(ctx context.Context, accountID, alertID uuid.UUID, status models.AlertStatus, notes string, reviewer uuid.UUID) (*models.Alert, error) {
	args := m.Called(ctx, accountID, alertID, status, notes, reviewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertRepository) CountsByStatus(ctx context.Context, accountID uuid.UUID) (map[models.AlertStatus]int64, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.AlertStatus]int64), args.Error(1)
}

func (m *MockAlertRepository) CountsBySeverity(ctx context.Context, accountID uuid.UUID) (map[models.Severity]int64, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Severity]int64), args.Error(1)
}

func (m *MockAlertRepository) CountsByType(ctx context.Context, accountID uuid.UUID) (map[models.AlertType]int64, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.AlertType]int64), args.Error(1)
}

func (m *MockAlertRepository) Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Alert, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Alert), args.Error(1)
}

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) SendFraudAlertEvent(ctx context.Context, event models.FraudAlertEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockKafkaProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockCategorizerClient struct {
	mock.Mock
}

func (m *MockCategorizerClient) Suggest(ctx context.Context, description, merchant string, amount float64) (*categorizer.Suggestion, error) {
	args := m.Called(ctx, description, merchant, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*categorizer.Suggestion), args.Error(1)
}

func (m *MockCategorizerClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockFraudEngine struct {
	mock.Mock
}

func (m *MockFraudEngine) Check(ctx context.Context, entry *models.LedgerEntry, account *models.Account) []*models.FraudSignal {
	args := m.Called(ctx, entry, account)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.FraudSignal)
}

type MockAlertCreator struct {
	mock.Mock
}

func (m *MockAlertCreator) CreateFromSignals(ctx context.Context, entry *models.LedgerEntry, account *models.Account, signals []*models.FraudSignal) []*models.Alert {
	args := m.Called(ctx, entry, account, signals)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.Alert)
}
