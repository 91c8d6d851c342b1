package fraud

import (
	"context"
	"fmt"
	"gw-ledger/internal/models"
	"math"
	"time"

	"github.com/google/uuid"
)

// History доступ к историческим агрегатам леджера. Все значения считаются
// по запросу от неизменяемых записей; отдельных накопительных счетчиков нет.
type History interface {
	// средний месячный расход по месяцам строго до before и число месяцев
	AvgMonthlyExpense(ctx context.Context, accountID uuid.UUID, before time.Time) (float64, int64, error)
	// сумма расходов категории за интервал [from, to], включительно
	CategoryExpenseTotal(ctx context.Context, accountID uuid.UUID, category models.Category, from, to time.Time) (int64, error)
	// число записей счета с since, без самой записи-триггера
	CountRecentEntries(ctx context.Context, accountID uuid.UUID, since time.Time, exclude uuid.UUID) (int64, error)
	// число ночных записей (00:00-06:00) с since
	CountNightEntries(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)
	// месячный лимит категории, 0 если не задан
	CategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category) (int64, error)
}

// Rule одно независимое фрод-правило: чистая функция от записи, счета и
// исторических агрегатов, возвращающая ноль или один сигнал.
type Rule interface {
	Type() models.AlertType
	Evaluate(ctx context.Context, entry *models.LedgerEntry, account *models.Account, history History) (*models.FraudSignal, error)
}

// Policy пороги правил. Значения унаследованы от исходной системы и
// являются настраиваемой политикой, а не выведенными константами.
type Policy struct {
	HighAmountShare    float64       // доля среднего месячного расхода
	HighSeverityFactor float64       // множитель порога для severity high
	CategoryWarnPct    float64       // нижняя граница "approaching limit"
	CategoryBreachPct  float64       // превышение лимита
	CategoryHighPct    float64       // превышение для severity high
	FrequencyWindow    time.Duration // окно частотного правила
	FrequencyMedium    int64         // записей в окне для medium
	FrequencyHigh      int64         // записей в окне для high
	NightEndHour       int           // конец ночного окна (эксклюзивно)
	NightLateHour      int           // час, после которого время необычное
	NightLookback      time.Duration // глубина истории ночного правила
	NightMaxEntries    int64         // максимум ночных записей для сигнала
}

func DefaultPolicy() Policy {
	return Policy{
		HighAmountShare:    0.10,
		HighSeverityFactor: 2.0,
		CategoryWarnPct:    80,
		CategoryBreachPct:  100,
		CategoryHighPct:    150,
		FrequencyWindow:    time.Hour,
		FrequencyMedium:    5,
		FrequencyHigh:      10,
		NightEndHour:       6,
		NightLateHour:      23,
		NightLookback:      30 * 24 * time.Hour,
		NightMaxEntries:    2,
	}
}

// DefaultRules собирает полный конвейер правил
func DefaultRules(policy Policy) []Rule {
	return []Rule{
		&HighAmountRule{policy: policy},
		&CategoryLimitRule{policy: policy},
		&FrequencyRule{policy: policy},
		&UnusualTimeRule{policy: policy},
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// HighAmountRule сравнивает расход со средним месячным расходом по всем
// месяцам до текущего. Без истории прошлых месяцев правило молчит.
type HighAmountRule struct {
	policy Policy
}

func (r *HighAmountRule) Type() models.AlertType { return models.AlertHighAmount }

func (r *HighAmountRule) Evaluate(ctx context.Context, entry *models.LedgerEntry, account *models.Account, history History) (*models.FraudSignal, error) {
	if !entry.Kind.IsExpense() {
		return nil, nil
	}

	avg, months, err := history.AvgMonthlyExpense(ctx, entry.AccountID, monthStart(entry.OccurredAt))
	if err != nil {
		return nil, err
	}
	if months == 0 || avg <= 0 {
		// холодный старт: не с чем сравнивать
		return nil, nil
	}

	threshold := avg * r.policy.HighAmountShare
	amount := float64(entry.Amount)
	if amount <= threshold {
		return nil, nil
	}

	severity := models.SeverityMedium
	if amount > threshold*r.policy.HighSeverityFactor {
		severity = models.SeverityHigh
	}

	return &models.FraudSignal{
		Type:     models.AlertHighAmount,
		Severity: severity,
		Message: fmt.Sprintf("High amount transaction: $%.2f exceeds typical spending pattern",
			models.AmountFromMinorUnits(entry.Amount)),
		Details: models.SignalDetails{
			Threshold:    models.AmountFromMinorUnits(int64(threshold)),
			ActualAmount: models.AmountFromMinorUnits(entry.Amount),
		},
	}, nil
}

// CategoryLimitRule следит за месячным лимитом категории. Сумма берется
// с начала календарного месяца по момент записи включительно.
type CategoryLimitRule struct {
	policy Policy
}

func (r *CategoryLimitRule) Type() models.AlertType { return models.AlertCategoryLimit }

func (r *CategoryLimitRule) Evaluate(ctx context.Context, entry *models.LedgerEntry, account *models.Account, history History) (*models.FraudSignal, error) {
	if !entry.Kind.IsExpense() {
		return nil, nil
	}

	limit, err := history.CategoryLimit(ctx, entry.AccountID, entry.Category)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return nil, nil
	}

	total, err := history.CategoryExpenseTotal(ctx, entry.AccountID, entry.Category, monthStart(entry.OccurredAt), entry.OccurredAt)
	if err != nil {
		return nil, err
	}

	pct := float64(total) / float64(limit) * 100

	details := models.SignalDetails{
		Threshold:    models.AmountFromMinorUnits(limit),
		ActualAmount: models.AmountFromMinorUnits(total),
		Category:     entry.Category,
		Percentage:   int(math.Round(pct)),
	}

	switch {
	case pct > r.policy.CategoryBreachPct:
		severity := models.SeverityMedium
		if pct > r.policy.CategoryHighPct {
			severity = models.SeverityHigh
		}
		return &models.FraudSignal{
			Type:     models.AlertCategoryLimit,
			Severity: severity,
			Message: fmt.Sprintf("Category limit exceeded: $%.2f spent in %s (limit: $%.2f)",
				models.AmountFromMinorUnits(total), entry.Category, models.AmountFromMinorUnits(limit)),
			Details: details,
		}, nil
	case pct > r.policy.CategoryWarnPct:
		return &models.FraudSignal{
			Type:     models.AlertCategoryLimit,
			Severity: models.SeverityLow,
			Message: fmt.Sprintf("Approaching category limit: %d%% of %s budget used",
				int(math.Round(pct)), entry.Category),
			Details: details,
		}, nil
	}

	return nil, nil
}

// FrequencyRule считает записи счета за скользящий час, включая триггерную
type FrequencyRule struct {
	policy Policy
}

func (r *FrequencyRule) Type() models.AlertType { return models.AlertFrequency }

func (r *FrequencyRule) Evaluate(ctx context.Context, entry *models.LedgerEntry, account *models.Account, history History) (*models.FraudSignal, error) {
	prior, err := history.CountRecentEntries(ctx, entry.AccountID, entry.OccurredAt.Add(-r.policy.FrequencyWindow), entry.ID)
	if err != nil {
		return nil, err
	}

	total := prior + 1
	if total < r.policy.FrequencyMedium {
		return nil, nil
	}

	severity := models.SeverityMedium
	if total >= r.policy.FrequencyHigh {
		severity = models.SeverityHigh
	}

	return &models.FraudSignal{
		Type:     models.AlertFrequency,
		Severity: severity,
		Message:  fmt.Sprintf("%d transactions in the last hour - unusually high frequency", total),
		Details: models.SignalDetails{
			Threshold:    float64(r.policy.FrequencyMedium),
			ActualAmount: float64(total),
			Timeframe:    "1 hour",
		},
	}, nil
}

// UnusualTimeRule отмечает операции в ночные часы у счетов, для которых
// ночная активность нехарактерна
type UnusualTimeRule struct {
	policy Policy
}

func (r *UnusualTimeRule) Type() models.AlertType { return models.AlertUnusualTime }

func (r *UnusualTimeRule) Evaluate(ctx context.Context, entry *models.LedgerEntry, account *models.Account, history History) (*models.FraudSignal, error) {
	hour := entry.OccurredAt.Hour()
	if hour >= r.policy.NightEndHour && hour <= r.policy.NightLateHour {
		return nil, nil
	}

	nightCount, err := history.CountNightEntries(ctx, entry.AccountID, entry.OccurredAt.Add(-r.policy.NightLookback))
	if err != nil {
		return nil, err
	}
	if nightCount > r.policy.NightMaxEntries {
		return nil, nil
	}

	return &models.FraudSignal{
		Type:     models.AlertUnusualTime,
		Severity: models.SeverityLow,
		Message:  fmt.Sprintf("Transaction at unusual time: %d:00", hour),
		Details: models.SignalDetails{
			Hour:      hour,
			Timeframe: "night hours (0-6)",
		},
	}, nil
}
