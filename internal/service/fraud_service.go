package service

import (
	"context"
	"gw-ledger/internal/fraud"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage/postgres"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// FraudEngine прогоняет конвейер правил по зафиксированной записи леджера.
// Работает строго после коммита: любая ошибка внутри логируется и не
// откатывает денежную операцию.
type FraudEngine interface {
	Check(ctx context.Context, entry *models.LedgerEntry, account *models.Account) []*models.FraudSignal
}

type AlertCreator interface {
	CreateFromSignals(ctx context.Context, entry *models.LedgerEntry, account *models.Account, signals []*models.FraudSignal) []*models.Alert
}

type FraudService struct {
	rules      []fraud.Rule
	history    fraud.History
	ledgerRepo postgres.LedgerRepository
	alerts     AlertCreator
	log        *slog.Logger
}

func NewFraudService(
	rules []fraud.Rule,
	history fraud.History,
	ledgerRepo postgres.LedgerRepository,
	alerts AlertCreator,
	log *slog.Logger,
) *FraudService {
	return &FraudService{
		rules:      rules,
		history:    history,
		ledgerRepo: ledgerRepo,
		alerts:     alerts,
		log:        log,
	}
}

// Check выполняет все правила, собирает сигналы в пакет и передает его
// менеджеру алертов. Фрод-метки на записи дозаписываются best-effort:
// их ошибка не мешает созданию алертов.
func (s *FraudService) Check(ctx context.Context, entry *models.LedgerEntry, account *models.Account) []*models.FraudSignal {
	const op = "service.FraudCheck"

	var signals []*models.FraudSignal
	for _, rule := range s.rules {
		signal, err := rule.Evaluate(ctx, entry, account, s.history)
		if err != nil {
			s.log.Error("fraud rule failed",
				slog.String("op", op),
				slog.String("rule", string(rule.Type())),
				slog.String("entry_id", entry.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if signal != nil {
			signals = append(signals, signal)
		}
	}

	if len(signals) == 0 {
		return nil
	}

	s.log.Info("fraud signals triggered",
		slog.String("op", op),
		slog.String("entry_id", entry.ID.String()),
		slog.Int("count", len(signals)))

	for _, signal := range signals {
		if err := s.ledgerRepo.CreateFraudTag(ctx, entry.ID, signal.Type, signal.Severity, signal.Message); err != nil {
			s.log.Error("failed to tag ledger entry",
				slog.String("op", op),
				slog.String("entry_id", entry.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	s.alerts.CreateFromSignals(ctx, entry, account, signals)

	return signals
}

// historyReader собирает fraud.History из репозиториев леджера и счетов
type historyReader struct {
	ledger   postgres.LedgerRepository
	accounts postgres.AccountRepository
}

func NewHistoryReader(ledger postgres.LedgerRepository, accounts postgres.AccountRepository) fraud.History {
	return &historyReader{ledger: ledger, accounts: accounts}
}

func (h *historyReader) AvgMonthlyExpense(ctx context.Context, accountID uuid.UUID, before time.Time) (float64, int64, error) {
	return h.ledger.AvgMonthlyExpense(ctx, accountID, before)
}

func (h *historyReader) CategoryExpenseTotal(ctx context.Context, accountID uuid.UUID, category models.Category, from, to time.Time) (int64, error) {
	return h.ledger.CategoryExpenseTotal(ctx, accountID, category, from, to)
}

func (h *historyReader) CountRecentEntries(ctx context.Context, accountID uuid.UUID, since time.Time, exclude uuid.UUID) (int64, error) {
	return h.ledger.CountRecentEntries(ctx, accountID, since, exclude)
}

func (h *historyReader) CountNightEntries(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	return h.ledger.CountNightEntries(ctx, accountID, since)
}

func (h *historyReader) CategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category) (int64, error) {
	return h.accounts.GetCategoryLimit(ctx, accountID, category)
}
