package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gw-ledger/internal/categorizer"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
)

func setupLedgerService() (*LedgerService, *MockAccountRepository, *MockLedgerRepository, *MockTxManager, *MockCategorizerClient, *MockFraudEngine) {
	accountRepo := new(MockAccountRepository)
	ledgerRepo := new(MockLedgerRepository)
	txManager := new(MockTxManager)
	categorizerClient := new(MockCategorizerClient)
	fraudEngine := new(MockFraudEngine)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	service := &LedgerService{
		accountRepo:         accountRepo,
		ledgerRepo:          ledgerRepo,
		txManager:           txManager,
		categorizer:         categorizerClient,
		fraudEngine:         fraudEngine,
		depositCeiling:      1_000_000,
		confidenceThreshold: 0.7,
		log:                 log,
	}

	return service, accountRepo, ledgerRepo, txManager, categorizerClient, fraudEngine
}

func testAccount(balance int64) *models.Account {
	return &models.Account{
		ID:                 uuid.New(),
		Username:           "testuser",
		Email:              "test@example.com",
		Currency:           "USD",
		Balance:            balance,
		FraudAlerts:        true,
		EmailNotifications: true,
	}
}

func TestLedgerService_Deposit_Success(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(5000)

	req := models.DepositRequest{
		Amount:    25.00,
		RequestID: "req-deposit-1",
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	ledgerRepo.On("GetByRequestID", ctx, account.ID, req.RequestID).Return(nil, custom_err.ErrNotFound)

	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, account.ID).Return(int64(5000), nil)
	accountRepo.On("UpdateBalanceTx", ctx, mock.Anything, account.ID, int64(7500)).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).Return(nil)

	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), account).Return(nil)

	resp, err := service.Deposit(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 75.00, resp.NewBalance)
	assert.NotEqual(t, uuid.Nil, resp.EntryID)

	accountRepo.AssertExpectations(t)
	ledgerRepo.AssertExpectations(t)
	fraudEngine.AssertExpectations(t)
}

func TestLedgerService_Deposit_InvalidAmount(t *testing.T) {
	service, _, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	resp, err := service.Deposit(ctx, uuid.New(), models.DepositRequest{
		Amount:    -10,
		RequestID: "req-1",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInvalidAmount)
}

func TestLedgerService_Deposit_MissingRequestID(t *testing.T) {
	service, _, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	resp, err := service.Deposit(ctx, uuid.New(), models.DepositRequest{
		Amount: 10,
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInvalidInput)
}

func TestLedgerService_Deposit_ExceedsCeiling(t *testing.T) {
	service, _, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	resp, err := service.Deposit(ctx, uuid.New(), models.DepositRequest{
		Amount:    10_000.01,
		RequestID: "req-1",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrDepositCeiling)
}

func TestLedgerService_Deposit_IdempotentReplay(t *testing.T) {
	service, accountRepo, ledgerRepo, _, _, _ := setupLedgerService()
	ctx := context.Background()

	account := testAccount(7500)
	existing := &models.LedgerEntry{
		ID:        uuid.New(),
		AccountID: account.ID,
		Kind:      models.KindInflow,
		Amount:    2500,
		RequestID: "req-deposit-1",
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	ledgerRepo.On("GetByRequestID", ctx, account.ID, existing.RequestID).Return(existing, nil)

	resp, err := service.Deposit(ctx, account.ID, models.DepositRequest{
		Amount:    25.00,
		RequestID: existing.RequestID,
	})

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, existing.ID, resp.EntryID)
	assert.Equal(t, 75.00, resp.NewBalance)

	ledgerRepo.AssertNotCalled(t, "CreateEntryTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_RecordTransaction_IncomeSuccess(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(0)

	req := models.TransactionRequest{
		Kind:          models.KindInflow,
		Amount:        1500.00,
		Description:   "Monthly salary",
		Category:      models.CategorySalary,
		PaymentMethod: models.PaymentBankTransfer,
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).Return(nil)
	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), account).Return(nil)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, models.KindInflow, resp.Entry.Kind)
	assert.Equal(t, int64(150000), resp.Entry.Amount)

	// доход не трогает баланс кошелька
	accountRepo.AssertNotCalled(t, "UpdateBalanceTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_RecordTransaction_WalletExpenseDebitsBalance(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(10000)

	req := models.TransactionRequest{
		Kind:          models.KindOutflow,
		Amount:        30.00,
		Description:   "Groceries",
		Category:      models.CategoryFood,
		PaymentMethod: models.PaymentWallet,
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, account.ID).Return(int64(10000), nil)
	accountRepo.On("UpdateBalanceTx", ctx, mock.Anything, account.ID, int64(7000)).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).Return(nil)
	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), account).Return(nil)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)

	accountRepo.AssertExpectations(t)
	ledgerRepo.AssertExpectations(t)
}

func TestLedgerService_RecordTransaction_WalletExpenseInsufficientFunds(t *testing.T) {
	service, accountRepo, _, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(1000)

	req := models.TransactionRequest{
		Kind:          models.KindOutflow,
		Amount:        50.00,
		Description:   "Groceries",
		Category:      models.CategoryFood,
		PaymentMethod: models.PaymentWallet,
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, account.ID).Return(int64(1000), nil)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInsufficientFunds)

	fraudEngine.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_RecordTransaction_InvalidKind(t *testing.T) {
	service, _, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	resp, err := service.RecordTransaction(ctx, uuid.New(), models.TransactionRequest{
		Kind:        models.KindTransferOut,
		Amount:      10,
		Description: "x",
		Category:    models.CategoryOther,
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInvalidKind)
}

func TestLedgerService_RecordTransaction_UnknownCategory(t *testing.T) {
	service, _, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	resp, err := service.RecordTransaction(ctx, uuid.New(), models.TransactionRequest{
		Kind:        models.KindOutflow,
		Amount:      10,
		Description: "x",
		Category:    models.Category("groceries"),
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInvalidCategory)
}

func TestLedgerService_RecordTransaction_CategorizerSuggestionAccepted(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, categorizerClient, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(0)

	req := models.TransactionRequest{
		Kind:          models.KindOutflow,
		Amount:        12.50,
		Description:   "Uber ride downtown",
		Merchant:      "Uber",
		Category:      models.CategoryOther,
		PaymentMethod: models.PaymentCard,
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	categorizerClient.On("Suggest", ctx, req.Description, req.Merchant, req.Amount).
		Return(&categorizer.Suggestion{Category: models.CategoryTransport, Confidence: 0.92}, nil)

	var created *models.LedgerEntry
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).
		Run(func(args mock.Arguments) {
			created = args.Get(2).(*models.LedgerEntry)
		}).
		Return(nil)
	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), account).Return(nil)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, models.CategoryTransport, created.Category)
	assert.True(t, created.AICategorized)
	assert.Equal(t, 0.92, created.Confidence)
}

func TestLedgerService_RecordTransaction_CategorizerLowConfidenceIgnored(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, categorizerClient, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(0)

	req := models.TransactionRequest{
		Kind:          models.KindOutflow,
		Amount:        12.50,
		Description:   "Mystery purchase",
		Category:      models.CategoryOther,
		PaymentMethod: models.PaymentCard,
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	categorizerClient.On("Suggest", ctx, req.Description, "", req.Amount).
		Return(&categorizer.Suggestion{Category: models.CategoryShopping, Confidence: 0.55}, nil)

	var created *models.LedgerEntry
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).
		Run(func(args mock.Arguments) {
			created = args.Get(2).(*models.LedgerEntry)
		}).
		Return(nil)
	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), account).Return(nil)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, models.CategoryOther, created.Category)
	assert.False(t, created.AICategorized)
}

func TestLedgerService_RecordTransaction_CategorizerUnavailable(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, categorizerClient, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(0)

	req := models.TransactionRequest{
		Kind:          models.KindOutflow,
		Amount:        12.50,
		Description:   "Mystery purchase",
		Category:      models.CategoryOther,
		PaymentMethod: models.PaymentCard,
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	categorizerClient.On("Suggest", ctx, req.Description, "", req.Amount).
		Return(nil, assert.AnError)

	var created *models.LedgerEntry
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).
		Run(func(args mock.Arguments) {
			created = args.Get(2).(*models.LedgerEntry)
		}).
		Return(nil)
	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), account).Return(nil)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, models.CategoryOther, created.Category)
}

func TestLedgerService_Transfer_Success(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	sender := testAccount(10000)
	recipient := testAccount(500)
	recipient.Username = "recipient"

	req := models.TransferRequest{
		ToUsername:  recipient.Username,
		Amount:      40.00,
		Description: "Dinner split",
		RequestID:   "req-transfer-1",
	}

	accountRepo.On("GetByID", ctx, sender.ID).Return(sender, nil)
	accountRepo.On("GetByUsername", ctx, recipient.Username).Return(recipient, nil)
	ledgerRepo.On("GetByRequestID", ctx, sender.ID, req.RequestID).Return(nil, custom_err.ErrNotFound)

	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, sender.ID).Return(int64(10000), nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, recipient.ID).Return(int64(500), nil)
	accountRepo.On("UpdateBalanceTx", ctx, mock.Anything, sender.ID, int64(6000)).Return(nil)
	accountRepo.On("UpdateBalanceTx", ctx, mock.Anything, recipient.ID, int64(4500)).Return(nil)

	entries := make([]*models.LedgerEntry, 0, 2)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).
		Run(func(args mock.Arguments) {
			entries = append(entries, args.Get(2).(*models.LedgerEntry))
		}).
		Return(nil)

	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), sender).Return(nil)
	fraudEngine.On("Check", ctx, mock.AnythingOfType("*models.LedgerEntry"), recipient).Return(nil)

	resp, err := service.Transfer(ctx, sender.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 60.00, resp.NewBalance)
	assert.Equal(t, recipient.Username, resp.Recipient)

	assert.Len(t, entries, 2)
	assert.Equal(t, models.KindTransferOut, entries[0].Kind)
	assert.Equal(t, models.KindTransferIn, entries[1].Kind)
	assert.Equal(t, entries[0].TransferGroup, entries[1].TransferGroup)
	assert.Equal(t, recipient.ID, *entries[0].Counterparty)
	assert.Equal(t, sender.ID, *entries[1].Counterparty)
	assert.Equal(t, req.RequestID, entries[0].RequestID)
	assert.Empty(t, entries[1].RequestID)

	accountRepo.AssertExpectations(t)
	fraudEngine.AssertNumberOfCalls(t, "Check", 2)
}

func TestLedgerService_Transfer_SelfTransfer(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	account := testAccount(10000)

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	accountRepo.On("GetByUsername", ctx, account.Username).Return(account, nil)

	resp, err := service.Transfer(ctx, account.ID, models.TransferRequest{
		ToUsername: account.Username,
		Amount:     10,
		RequestID:  "req-1",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrSelfTransfer)
}

func TestLedgerService_Transfer_RecipientNotFound(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	sender := testAccount(10000)

	accountRepo.On("GetByID", ctx, sender.ID).Return(sender, nil)
	accountRepo.On("GetByUsername", ctx, "ghost").Return(nil, custom_err.ErrNotFound)

	resp, err := service.Transfer(ctx, sender.ID, models.TransferRequest{
		ToUsername: "ghost",
		Amount:     10,
		RequestID:  "req-1",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrNotFound)
}

func TestLedgerService_Transfer_InsufficientFunds(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	sender := testAccount(1000)
	recipient := testAccount(0)
	recipient.Username = "recipient"

	accountRepo.On("GetByID", ctx, sender.ID).Return(sender, nil)
	accountRepo.On("GetByUsername", ctx, recipient.Username).Return(recipient, nil)
	ledgerRepo.On("GetByRequestID", ctx, sender.ID, "req-1").Return(nil, custom_err.ErrNotFound)

	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, sender.ID).Return(int64(1000), nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, recipient.ID).Return(int64(0), nil)

	resp, err := service.Transfer(ctx, sender.ID, models.TransferRequest{
		ToUsername: recipient.Username,
		Amount:     50.00,
		RequestID:  "req-1",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInsufficientFunds)

	accountRepo.AssertNotCalled(t, "UpdateBalanceTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	fraudEngine.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_Transfer_IdempotentReplay(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, _ := setupLedgerService()
	ctx := context.Background()

	sender := testAccount(6000)
	recipient := testAccount(4500)
	recipient.Username = "recipient"

	group := uuid.New()
	existing := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     sender.ID,
		Kind:          models.KindTransferOut,
		Amount:        4000,
		TransferGroup: &group,
		RequestID:     "req-transfer-1",
	}

	accountRepo.On("GetByID", ctx, sender.ID).Return(sender, nil)
	accountRepo.On("GetByUsername", ctx, recipient.Username).Return(recipient, nil)
	ledgerRepo.On("GetByRequestID", ctx, sender.ID, existing.RequestID).Return(existing, nil)

	resp, err := service.Transfer(ctx, sender.ID, models.TransferRequest{
		ToUsername: recipient.Username,
		Amount:     40.00,
		RequestID:  existing.RequestID,
	})

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, group, resp.TransferGroup)
	assert.Equal(t, 60.00, resp.NewBalance)

	txManager.AssertNotCalled(t, "WithTx", mock.Anything, mock.Anything)
}

func TestLedgerService_GetBalance_Success(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	account := testAccount(12345)

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)

	resp, err := service.GetBalance(ctx, account.ID)

	assert.NoError(t, err)
	assert.Equal(t, 123.45, resp.Balance)
	assert.Equal(t, "USD", resp.Currency)
}

func TestLedgerService_GetBalance_NotFound(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	id := uuid.New()
	accountRepo.On("GetByID", ctx, id).Return(nil, custom_err.ErrNotFound)

	resp, err := service.GetBalance(ctx, id)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrNotFound)
}

func TestLedgerService_SetCategoryLimits_Success(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	accountID := uuid.New()

	accountRepo.On("UpsertCategoryLimit", ctx, accountID, models.CategoryFood, int64(50000)).Return(nil)
	accountRepo.On("UpsertCategoryLimit", ctx, accountID, models.CategoryTransport, int64(15000)).Return(nil)

	err := service.SetCategoryLimits(ctx, accountID, models.SetLimitsRequest{
		Limits: map[models.Category]float64{
			models.CategoryFood:      500.00,
			models.CategoryTransport: 150.00,
		},
	})

	assert.NoError(t, err)
	accountRepo.AssertExpectations(t)
}

func TestLedgerService_SetCategoryLimits_UnknownCategory(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	err := service.SetCategoryLimits(ctx, uuid.New(), models.SetLimitsRequest{
		Limits: map[models.Category]float64{
			models.Category("crypto"): 100.00,
		},
	})

	assert.ErrorIs(t, err, custom_err.ErrInvalidCategory)
	accountRepo.AssertNotCalled(t, "UpsertCategoryLimit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_RecordTransaction_WalletExpenseIdempotentReplay(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(10000)

	existing := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     account.ID,
		Kind:          models.KindOutflow,
		Amount:        3000,
		Category:      models.CategoryFood,
		Description:   "Groceries",
		PaymentMethod: models.PaymentWallet,
		RequestID:     "req-expense-1",
	}

	req := models.TransactionRequest{
		Kind:          models.KindOutflow,
		Amount:        30.00,
		Description:   "Groceries",
		Category:      models.CategoryFood,
		PaymentMethod: models.PaymentWallet,
		RequestID:     "req-expense-1",
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	ledgerRepo.On("GetByRequestID", ctx, account.ID, "req-expense-1").Return(existing, nil)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, existing, resp.Entry)

	txManager.AssertNotCalled(t, "WithTx", mock.Anything, mock.Anything)
	fraudEngine.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_RecordTransaction_WalletExpenseDuplicateRace(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(10000)

	existing := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     account.ID,
		Kind:          models.KindOutflow,
		Amount:        3000,
		Category:      models.CategoryFood,
		PaymentMethod: models.PaymentWallet,
		RequestID:     "req-expense-race",
	}

	req := models.TransactionRequest{
		Kind:          models.KindOutflow,
		Amount:        30.00,
		Description:   "Groceries",
		Category:      models.CategoryFood,
		PaymentMethod: models.PaymentWallet,
		RequestID:     "req-expense-race",
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	ledgerRepo.On("GetByRequestID", ctx, account.ID, "req-expense-race").
		Return(nil, custom_err.ErrNotFound).Once()
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	accountRepo.On("GetBalanceForUpdateTx", ctx, mock.Anything, account.ID).Return(int64(10000), nil)
	accountRepo.On("UpdateBalanceTx", ctx, mock.Anything, account.ID, int64(7000)).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).
		Return(custom_err.ErrDuplicateRequest)
	ledgerRepo.On("GetByRequestID", ctx, account.ID, "req-expense-race").
		Return(existing, nil).Once()

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, existing, resp.Entry)

	fraudEngine.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_RecordTransaction_InformationalDuplicateStillErrors(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager, _, fraudEngine := setupLedgerService()
	ctx := context.Background()

	account := testAccount(10000)

	req := models.TransactionRequest{
		Kind:        models.KindInflow,
		Amount:      100.00,
		Description: "Salary",
		Category:    models.CategorySalary,
		RequestID:   "req-income-1",
	}

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	txManager.On("WithTx", ctx, mock.AnythingOfType("func(pgx.Tx) error")).Return(nil)
	ledgerRepo.On("CreateEntryTx", ctx, mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).
		Return(custom_err.ErrDuplicateRequest)

	resp, err := service.RecordTransaction(ctx, account.ID, req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrDuplicateRequest)

	ledgerRepo.AssertNotCalled(t, "GetByRequestID", mock.Anything, mock.Anything, mock.Anything)
	fraudEngine.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_ListEntries_AttachesFraudFlags(t *testing.T) {
	service, _, ledgerRepo, _, _, _ := setupLedgerService()
	ctx := context.Background()

	accountID := uuid.New()
	flagged := &models.LedgerEntry{ID: uuid.New(), AccountID: accountID, Kind: models.KindOutflow}
	clean := &models.LedgerEntry{ID: uuid.New(), AccountID: accountID, Kind: models.KindInflow}

	tags := map[uuid.UUID][]models.FraudTag{
		flagged.ID: {
			{ID: 1, EntryID: flagged.ID, TagType: models.AlertHighAmount, Severity: models.SeverityHigh, Message: "High amount transaction"},
		},
	}

	ledgerRepo.On("List", ctx, accountID, mock.AnythingOfType("models.EntryFilter")).
		Return([]*models.LedgerEntry{flagged, clean}, int64(2), nil)
	ledgerRepo.On("GetFraudTags", ctx, []uuid.UUID{flagged.ID, clean.ID}).Return(tags, nil)

	resp, err := service.ListEntries(ctx, accountID, models.EntryFilter{})

	assert.NoError(t, err)
	assert.Len(t, resp.Transactions, 2)
	assert.Len(t, resp.Transactions[0].FraudFlags, 1)
	assert.Equal(t, models.AlertHighAmount, resp.Transactions[0].FraudFlags[0].TagType)
	assert.Empty(t, resp.Transactions[1].FraudFlags)

	ledgerRepo.AssertExpectations(t)
}

func TestLedgerService_SetCategoryLimits_MonthlyLimit(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	accountID := uuid.New()
	monthly := 1000.00

	accountRepo.On("UpsertCategoryLimit", ctx, accountID, models.CategoryFood, int64(50000)).Return(nil)
	accountRepo.On("UpdateMonthlyLimit", ctx, accountID, int64(100000)).Return(nil)

	err := service.SetCategoryLimits(ctx, accountID, models.SetLimitsRequest{
		Limits: map[models.Category]float64{
			models.CategoryFood: 500.00,
		},
		MonthlyLimit: &monthly,
	})

	assert.NoError(t, err)
	accountRepo.AssertExpectations(t)
}

func TestLedgerService_SetCategoryLimits_NegativeMonthlyLimit(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	monthly := -10.00

	err := service.SetCategoryLimits(ctx, uuid.New(), models.SetLimitsRequest{
		MonthlyLimit: &monthly,
	})

	assert.ErrorIs(t, err, custom_err.ErrInvalidAmount)
	accountRepo.AssertNotCalled(t, "UpdateMonthlyLimit", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerService_GetCategoryLimits_Success(t *testing.T) {
	service, accountRepo, _, _, _, _ := setupLedgerService()
	ctx := context.Background()

	account := testAccount(0)
	account.MonthlyLimit = 100000

	accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	accountRepo.On("GetCategoryLimits", ctx, account.ID).Return([]models.CategoryLimit{
		{Category: models.CategoryFood, Limit: 50000},
		{Category: models.CategoryTransport, Limit: 15000},
	}, nil)

	resp, err := service.GetCategoryLimits(ctx, account.ID)

	assert.NoError(t, err)
	assert.Equal(t, 1000.00, resp.MonthlyLimit)
	assert.Equal(t, 500.00, resp.Limits[models.CategoryFood])
	assert.Equal(t, 150.00, resp.Limits[models.CategoryTransport])

	accountRepo.AssertExpectations(t)
}
