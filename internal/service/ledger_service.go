package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"gw-ledger/internal/categorizer"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage/postgres"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Ledger interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (*models.BalanceResponse, error)
	Deposit(ctx context.Context, accountID uuid.UUID, req models.DepositRequest) (*models.DepositResponse, error)
	RecordTransaction(ctx context.Context, accountID uuid.UUID, req models.TransactionRequest) (*models.TransactionResponse, error)
	Transfer(ctx context.Context, accountID uuid.UUID, req models.TransferRequest) (*models.TransferResponse, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, filter models.EntryFilter) (*models.EntryListResponse, error)
	SetCategoryLimits(ctx context.Context, accountID uuid.UUID, req models.SetLimitsRequest) error
	GetCategoryLimits(ctx context.Context, accountID uuid.UUID) (*models.LimitsResponse, error)
}

// LedgerService координатор денежных операций. Каждая операция исполняется
// одной транзакцией: проверка предусловия, изменение баланса и вставка
// записей коммитятся вместе или не коммитятся вовсе.
type LedgerService struct {
	accountRepo postgres.AccountRepository
	ledgerRepo  postgres.LedgerRepository
	txManager   TxManager
	categorizer categorizer.Client
	fraudEngine FraudEngine

	depositCeiling      int64
	confidenceThreshold float64
	log                 *slog.Logger
}

func NewLedgerService(
	accountRepo postgres.AccountRepository,
	ledgerRepo postgres.LedgerRepository,
	txManager TxManager,
	categorizerClient categorizer.Client,
	fraudEngine FraudEngine,
	depositCeiling int64,
	confidenceThreshold float64,
	log *slog.Logger,
) *LedgerService {
	return &LedgerService{
		accountRepo:         accountRepo,
		ledgerRepo:          ledgerRepo,
		txManager:           txManager,
		categorizer:         categorizerClient,
		fraudEngine:         fraudEngine,
		depositCeiling:      depositCeiling,
		confidenceThreshold: confidenceThreshold,
		log:                 log,
	}
}

func (s *LedgerService) GetBalance(ctx context.Context, accountID uuid.UUID) (*models.BalanceResponse, error) {
	const op = "service.GetBalance"

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.BalanceResponse{
		Balance:  models.AmountFromMinorUnits(account.Balance),
		Currency: account.Currency,
	}, nil
}

func (s *LedgerService) Deposit(ctx context.Context, accountID uuid.UUID, req models.DepositRequest) (*models.DepositResponse, error) {
	const op = "service.Deposit"

	if req.Amount <= 0 {
		return nil, custom_err.ErrInvalidAmount
	}
	if req.RequestID == "" {
		return nil, custom_err.ErrInvalidInput
	}
	amount := models.AmountToMinorUnits(req.Amount)
	if amount > s.depositCeiling {
		return nil, custom_err.ErrDepositCeiling
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// повтор с тем же ключом возвращает исходный результат без записи
	if existing, err := s.ledgerRepo.GetByRequestID(ctx, accountID, req.RequestID); err == nil {
		return s.depositReplay(ctx, accountID, existing)
	} else if !errors.Is(err, custom_err.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	description := req.Description
	if description == "" {
		description = "Add funds to wallet"
	}

	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     accountID,
		Kind:          models.KindInflow,
		Amount:        amount,
		Category:      models.CategoryOther,
		Description:   description,
		PaymentMethod: models.PaymentWallet,
		OccurredAt:    time.Now(),
		RequestID:     req.RequestID,
	}

	var newBalance int64
	err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		balance, err := s.accountRepo.GetBalanceForUpdateTx(ctx, tx, accountID)
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}

		newBalance = balance + amount
		if err := s.accountRepo.UpdateBalanceTx(ctx, tx, accountID, newBalance); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		if err := s.ledgerRepo.CreateEntryTx(ctx, tx, entry); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		return nil
	})
	if err != nil {
		// проигранная гонка двух повторов одного ключа
		if errors.Is(err, custom_err.ErrDuplicateRequest) {
			if existing, getErr := s.ledgerRepo.GetByRequestID(ctx, accountID, req.RequestID); getErr == nil {
				return s.depositReplay(ctx, accountID, existing)
			}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.runFraudCheck(ctx, entry, account)

	return &models.DepositResponse{
		Message:    "Funds added successfully",
		EntryID:    entry.ID,
		NewBalance: models.AmountFromMinorUnits(newBalance),
	}, nil
}

func (s *LedgerService) depositReplay(ctx context.Context, accountID uuid.UUID, entry *models.LedgerEntry) (*models.DepositResponse, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &models.DepositResponse{
		Message:    "Funds added successfully",
		EntryID:    entry.ID,
		NewBalance: models.AmountFromMinorUnits(account.Balance),
	}, nil
}

// RecordTransaction записывает доход или расход. Запись информационная и
// не трогает баланс, кроме расхода со способом оплаты wallet: тогда она
// ведет себя как снятие и требует достаточного остатка.
func (s *LedgerService) RecordTransaction(ctx context.Context, accountID uuid.UUID, req models.TransactionRequest) (*models.TransactionResponse, error) {
	const op = "service.RecordTransaction"

	if req.Kind != models.KindInflow && req.Kind != models.KindOutflow {
		return nil, custom_err.ErrInvalidKind
	}
	if req.Amount <= 0 {
		return nil, custom_err.ErrInvalidAmount
	}
	if req.Description == "" {
		return nil, custom_err.ErrInvalidInput
	}
	if !req.Category.IsValid() {
		return nil, custom_err.ErrInvalidCategory
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentOther
	}
	if !paymentMethod.IsValid() {
		return nil, custom_err.ErrInvalidInput
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     accountID,
		Kind:          req.Kind,
		Amount:        models.AmountToMinorUnits(req.Amount),
		Category:      req.Category,
		Description:   req.Description,
		Merchant:      req.Merchant,
		PaymentMethod: paymentMethod,
		OccurredAt:    occurredAt,
		RequestID:     req.RequestID,
	}

	debitsWallet := req.Kind == models.KindOutflow && paymentMethod == models.PaymentWallet

	// запись, списавшая баланс, ведет себя как снятие: повтор с тем же
	// ключом возвращает исходный результат, а не ошибку дубликата
	if debitsWallet && req.RequestID != "" {
		if existing, err := s.ledgerRepo.GetByRequestID(ctx, accountID, req.RequestID); err == nil {
			return s.transactionReplay(existing), nil
		} else if !errors.Is(err, custom_err.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.suggestCategory(ctx, entry, req.Amount)

	err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		if debitsWallet {
			balance, err := s.accountRepo.GetBalanceForUpdateTx(ctx, tx, accountID)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}
			newBalance := balance - entry.Amount
			if newBalance < 0 {
				return custom_err.ErrInsufficientFunds
			}
			if err := s.accountRepo.UpdateBalanceTx(ctx, tx, accountID, newBalance); err != nil {
				return fmt.Errorf("failed to update balance: %w", err)
			}
		}

		if err := s.ledgerRepo.CreateEntryTx(ctx, tx, entry); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, custom_err.ErrInsufficientFunds) {
			return nil, err
		}
		if errors.Is(err, custom_err.ErrDuplicateRequest) {
			// проигранная гонка двух повторов одного ключа
			if debitsWallet {
				if existing, getErr := s.ledgerRepo.GetByRequestID(ctx, accountID, req.RequestID); getErr == nil {
					return s.transactionReplay(existing), nil
				}
			}
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.runFraudCheck(ctx, entry, account)

	return &models.TransactionResponse{
		Message: "Transaction created successfully",
		Entry:   entry,
	}, nil
}

func (s *LedgerService) transactionReplay(entry *models.LedgerEntry) *models.TransactionResponse {
	return &models.TransactionResponse{
		Message: "Transaction created successfully",
		Entry:   entry,
	}
}

// suggestCategory запрашивает подсказку у внешнего категоризатора для
// записей с категорией-заглушкой. Подсказка сугубо рекомендательная:
// недоступность сервиса или слабая уверенность оставляют категорию как есть.
func (s *LedgerService) suggestCategory(ctx context.Context, entry *models.LedgerEntry, amount float64) {
	if entry.Category != models.CategoryOther {
		return
	}

	suggestion, err := s.categorizer.Suggest(ctx, entry.Description, entry.Merchant, amount)
	if err != nil {
		s.log.Warn("категоризатор недоступен, категория оставлена",
			slog.String("entry_id", entry.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	if suggestion == nil || suggestion.Confidence <= s.confidenceThreshold {
		return
	}

	entry.Category = suggestion.Category
	entry.AICategorized = true
	entry.Confidence = suggestion.Confidence
}

func (s *LedgerService) Transfer(ctx context.Context, accountID uuid.UUID, req models.TransferRequest) (*models.TransferResponse, error) {
	const op = "service.Transfer"

	if req.Amount <= 0 {
		return nil, custom_err.ErrInvalidAmount
	}
	if req.RequestID == "" || req.ToUsername == "" {
		return nil, custom_err.ErrInvalidInput
	}

	sender, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	recipient, err := s.accountRepo.GetByUsername(ctx, req.ToUsername)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if recipient.ID == sender.ID {
		return nil, custom_err.ErrSelfTransfer
	}

	// повтор с тем же ключом возвращает исходный перевод без новых записей
	if existing, err := s.ledgerRepo.GetByRequestID(ctx, accountID, req.RequestID); err == nil {
		return s.transferReplay(ctx, sender.ID, recipient.Username, existing)
	} else if !errors.Is(err, custom_err.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	amount := models.AmountToMinorUnits(req.Amount)
	transferGroup := uuid.New()
	occurredAt := time.Now()

	outEntry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     sender.ID,
		Kind:          models.KindTransferOut,
		Amount:        amount,
		Category:      models.CategoryTransfer,
		Description:   fmt.Sprintf("Transfer to %s: %s", recipient.Username, req.Description),
		PaymentMethod: models.PaymentWallet,
		OccurredAt:    occurredAt,
		TransferGroup: &transferGroup,
		Counterparty:  &recipient.ID,
		RequestID:     req.RequestID,
	}
	inEntry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     recipient.ID,
		Kind:          models.KindTransferIn,
		Amount:        amount,
		Category:      models.CategoryTransfer,
		Description:   fmt.Sprintf("Transfer from %s: %s", sender.Username, req.Description),
		PaymentMethod: models.PaymentWallet,
		OccurredAt:    occurredAt,
		TransferGroup: &transferGroup,
		Counterparty:  &sender.ID,
	}

	var newSenderBalance int64
	err = s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		// блокировка обеих строк в порядке возрастания id, чтобы два
		// встречных перевода не встали в deadlock
		first, second := sender.ID, recipient.ID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}

		balances := make(map[uuid.UUID]int64, 2)
		for _, id := range []uuid.UUID{first, second} {
			balance, err := s.accountRepo.GetBalanceForUpdateTx(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("failed to lock account: %w", err)
			}
			balances[id] = balance
		}

		newSenderBalance = balances[sender.ID] - amount
		if newSenderBalance < 0 {
			return custom_err.ErrInsufficientFunds
		}

		if err := s.accountRepo.UpdateBalanceTx(ctx, tx, sender.ID, newSenderBalance); err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if err := s.accountRepo.UpdateBalanceTx(ctx, tx, recipient.ID, balances[recipient.ID]+amount); err != nil {
			return fmt.Errorf("failed to credit recipient: %w", err)
		}

		if err := s.ledgerRepo.CreateEntryTx(ctx, tx, outEntry); err != nil {
			return fmt.Errorf("failed to create transfer_out entry: %w", err)
		}
		if err := s.ledgerRepo.CreateEntryTx(ctx, tx, inEntry); err != nil {
			return fmt.Errorf("failed to create transfer_in entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, custom_err.ErrDuplicateRequest) {
			if existing, getErr := s.ledgerRepo.GetByRequestID(ctx, accountID, req.RequestID); getErr == nil {
				return s.transferReplay(ctx, sender.ID, recipient.Username, existing)
			}
		}
		if errors.Is(err, custom_err.ErrInsufficientFunds) || errors.Is(err, custom_err.ErrConflict) || errors.Is(err, custom_err.ErrTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("transfer completed",
		slog.String("op", op),
		slog.String("transfer_group", transferGroup.String()),
		slog.String("from", sender.ID.String()),
		slog.String("to", recipient.ID.String()),
		slog.Int64("amount", amount))

	s.runFraudCheck(ctx, outEntry, sender)
	s.runFraudCheck(ctx, inEntry, recipient)

	return &models.TransferResponse{
		Message:       "Transfer completed successfully",
		TransferGroup: transferGroup,
		NewBalance:    models.AmountFromMinorUnits(newSenderBalance),
		Recipient:     recipient.Username,
	}, nil
}

func (s *LedgerService) transferReplay(ctx context.Context, senderID uuid.UUID, recipientUsername string, entry *models.LedgerEntry) (*models.TransferResponse, error) {
	account, err := s.accountRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	var group uuid.UUID
	if entry.TransferGroup != nil {
		group = *entry.TransferGroup
	}

	return &models.TransferResponse{
		Message:       "Transfer completed successfully",
		TransferGroup: group,
		NewBalance:    models.AmountFromMinorUnits(account.Balance),
		Recipient:     recipientUsername,
	}, nil
}

// runFraudCheck запускает конвейер правил после коммита. Ошибка внутри
// конвейера означает пробел в мониторинге, а не сбой денежной операции.
func (s *LedgerService) runFraudCheck(ctx context.Context, entry *models.LedgerEntry, account *models.Account) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("fraud check panic",
				slog.String("entry_id", entry.ID.String()),
				slog.Any("panic", p))
		}
	}()

	s.fraudEngine.Check(ctx, entry, account)
}

func (s *LedgerService) ListEntries(ctx context.Context, accountID uuid.UUID, filter models.EntryFilter) (*models.EntryListResponse, error) {
	const op = "service.ListEntries"

	filter.Normalize()
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, custom_err.ErrInvalidKind
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, custom_err.ErrInvalidCategory
	}

	entries, total, err := s.ledgerRepo.List(ctx, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(entries) > 0 {
		entryIDs := make([]uuid.UUID, len(entries))
		for i, entry := range entries {
			entryIDs[i] = entry.ID
		}
		tags, err := s.ledgerRepo.GetFraudTags(ctx, entryIDs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, entry := range entries {
			entry.FraudFlags = tags[entry.ID]
		}
	}

	return &models.EntryListResponse{
		Transactions: entries,
		Pagination:   models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// SetCategoryLimits проверяет категории на границе, чтобы нераспознанная
// категория не проскочила мимо лимитных проверок
func (s *LedgerService) SetCategoryLimits(ctx context.Context, accountID uuid.UUID, req models.SetLimitsRequest) error {
	const op = "service.SetCategoryLimits"

	if len(req.Limits) == 0 && req.MonthlyLimit == nil {
		return custom_err.ErrInvalidInput
	}
	for category, limit := range req.Limits {
		if !category.IsValid() {
			return custom_err.ErrInvalidCategory
		}
		if limit < 0 {
			return custom_err.ErrInvalidAmount
		}
	}
	if req.MonthlyLimit != nil && *req.MonthlyLimit < 0 {
		return custom_err.ErrInvalidAmount
	}

	for category, limit := range req.Limits {
		if err := s.accountRepo.UpsertCategoryLimit(ctx, accountID, category, models.AmountToMinorUnits(limit)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if req.MonthlyLimit != nil {
		if err := s.accountRepo.UpdateMonthlyLimit(ctx, accountID, models.AmountToMinorUnits(*req.MonthlyLimit)); err != nil {
			if errors.Is(err, custom_err.ErrNotFound) {
				return custom_err.ErrNotFound
			}
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (s *LedgerService) GetCategoryLimits(ctx context.Context, accountID uuid.UUID) (*models.LimitsResponse, error) {
	const op = "service.GetCategoryLimits"

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	categoryLimits, err := s.accountRepo.GetCategoryLimits(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	limits := make(map[models.Category]float64, len(categoryLimits))
	for _, l := range categoryLimits {
		limits[l.Category] = models.AmountFromMinorUnits(l.Limit)
	}

	return &models.LimitsResponse{
		MonthlyLimit: models.AmountFromMinorUnits(account.MonthlyLimit),
		Limits:       limits,
	}, nil
}
