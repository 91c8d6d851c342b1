package app

import (
	"context"
	"errors"
	"fmt"
	"gw-ledger/internal/api/middlew"
	"gw-ledger/internal/categorizer"
	"gw-ledger/internal/fraud"
	"gw-ledger/internal/kafka"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage/postgres"
	"gw-ledger/pkg/logger"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gw-ledger/internal/api/handlers"
	"gw-ledger/internal/config"
	"gw-ledger/internal/db"
	"gw-ledger/internal/server"
	"gw-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	log               *slog.Logger
	server            *server.Server
	pool              *pgxpool.Pool
	logFile           *os.File
	cfg               *config.Config
	authService       service.Auth
	ledgerService     service.Ledger
	alertService      *service.AlertService
	fraudService      *service.FraudService
	categorizerClient categorizer.Client
	kafkaProducer     kafka.Producer
}

func NewApp() (*App, error) {
	loggerWithFile := logger.NewLoggerWithFile("ledger.log")
	log := loggerWithFile.Logger
	log.Info("инициализация приложения")

	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации конфига: %w", err)
	}
	log.Info("конфигурация загружена", slog.String("port", cfg.HTTPPort))

	log.Info("выполнение миграций базы данных")
	if err := db.RunMigrations(cfg.DB.MigrationURL(), "migrations"); err != nil {
		return nil, fmt.Errorf("ошибка выполнения миграций: %w", err)
	}
	log.Info("миграции успешно применены")

	poolCfg := db.PoolConfig{
		MaxConns:          200,
		MinConns:          10,
		HealthCheckPeriod: 30 * time.Second,
		PoolTimeout:       5 * time.Second,
		RetryAttempts:     5,
		RetryDelay:        1 * time.Second,
		ApplicationName:   "gw-ledger",
	}

	pool, err := db.NewPool(context.Background(), cfg.DB.DSN(), poolCfg, log)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}
	log.Info("подключение к базе данных установлено")

	var categorizerClient categorizer.Client
	if cfg.Categorizer.Enabled {
		log.Info("инициализация клиента категоризатора", slog.String("base_url", cfg.Categorizer.BaseURL))
		categorizerClient = categorizer.NewHTTPClient(
			cfg.Categorizer.BaseURL,
			cfg.Categorizer.APIKey,
			cfg.Categorizer.Model,
			cfg.Categorizer.Timeout,
			log,
		)
	} else {
		log.Info("категоризатор отключен в конфигурации")
		categorizerClient = categorizer.NewNoOpClient(log)
	}

	var kafkaProducer kafka.Producer
	if cfg.Kafka.Enabled {
		log.Info("инициализация kafka producer", slog.Any("brokers", cfg.Kafka.Brokers))
		kafkaProducer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации kafka: %w", err)
		}
	} else {
		log.Info("kafka отключен в конфигурации")
		kafkaProducer = kafka.NewNoOpProducer(log)
	}

	srv := server.NewServer(cfg.HTTPPort)
	log.Info("сервер инициализирован", slog.String("port", cfg.HTTPPort))
	srv.Router.Use(middleware.RequestID)
	srv.Router.Use(middlew.WithLogger(log))
	srv.Router.Use(middleware.RealIP)
	srv.Router.Use(middleware.Recoverer)
	srv.RegisterSwagger()

	return &App{
		log:               log,
		server:            srv,
		pool:              pool,
		logFile:           loggerWithFile.LogFile,
		cfg:               cfg,
		categorizerClient: categorizerClient,
		kafkaProducer:     kafkaProducer,
	}, nil
}

func (a *App) BuildAuthLayer() {
	txManager := service.NewPgxTxManager(a.pool)
	accountRepo := postgres.NewAccountRepository(a.pool)

	a.authService = service.NewAuthService(
		accountRepo,
		txManager,
		a.cfg.JWT.Secret,
		a.cfg.JWT.Expiration,
		a.log,
	)

	authHandler := handlers.NewAuthHandler(a.authService)

	a.server.Router.Post("/api/v1/register", authHandler.Register)
	a.server.Router.Post("/api/v1/login", authHandler.Login)

	a.log.Info("слой 'auth' собран и маршруты зарегистрированы")
}

func (a *App) BuildAlertLayer() error {
	if a.authService == nil {
		err := errors.New("authService not initialized, call BuildAuthLayer first")
		a.log.Error(err.Error())
		return err
	}
	if a.kafkaProducer == nil {
		err := errors.New("kafkaProducer not initialized")
		a.log.Error(err.Error())
		return err
	}

	alertRepo := postgres.NewAlertRepository(a.pool)
	ledgerRepo := postgres.NewLedgerRepository(a.pool)

	a.alertService = service.NewAlertService(
		alertRepo,
		ledgerRepo,
		a.kafkaProducer,
		a.log,
	)

	alertHandler := handlers.NewAlertHandler(a.alertService)

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.RequireAuth(a.authService))

		r.Get("/api/v1/alerts", alertHandler.List)
		r.Get("/api/v1/alerts/summary", alertHandler.Summary)
		r.Get("/api/v1/alerts/{alertID}", alertHandler.Get)
		r.Post("/api/v1/alerts/{alertID}/review", alertHandler.Review)
	})

	a.log.Info("слой 'alerts' собран и маршруты зарегистрированы")
	return nil
}

func (a *App) BuildLedgerLayer() error {
	if a.authService == nil {
		err := errors.New("authService not initialized, call BuildAuthLayer first")
		a.log.Error(err.Error())
		return err
	}
	if a.alertService == nil {
		err := errors.New("alertService not initialized, call BuildAlertLayer first")
		a.log.Error(err.Error())
		return err
	}

	txManager := service.NewPgxTxManager(a.pool)
	accountRepo := postgres.NewAccountRepository(a.pool)
	ledgerRepo := postgres.NewLedgerRepository(a.pool)

	policy := a.fraudPolicy()
	a.fraudService = service.NewFraudService(
		fraud.DefaultRules(policy),
		service.NewHistoryReader(ledgerRepo, accountRepo),
		ledgerRepo,
		a.alertService,
		a.log,
	)

	a.ledgerService = service.NewLedgerService(
		accountRepo,
		ledgerRepo,
		txManager,
		a.categorizerClient,
		a.fraudService,
		models.AmountToMinorUnits(a.cfg.Ledger.DepositCeiling),
		a.cfg.Categorizer.ConfidenceThreshold,
		a.log,
	)

	walletHandler := handlers.NewWalletHandler(a.ledgerService)
	transactionHandler := handlers.NewTransactionHandler(a.ledgerService)

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.RequireAuth(a.authService))

		r.Get("/api/v1/balance", walletHandler.GetBalance)
		r.Post("/api/v1/wallet/deposit", walletHandler.Deposit)
		r.Post("/api/v1/wallet/transfer", walletHandler.Transfer)
		r.Post("/api/v1/transactions", transactionHandler.Create)
		r.Get("/api/v1/transactions", transactionHandler.List)
		r.Put("/api/v1/limits", transactionHandler.SetLimits)
		r.Get("/api/v1/limits", transactionHandler.GetLimits)
	})

	a.log.Info("слой 'ledger' собран и маршруты зарегистрированы")
	return nil
}

func (a *App) fraudPolicy() fraud.Policy {
	return fraud.Policy{
		HighAmountShare:    a.cfg.Fraud.HighAmountShare,
		HighSeverityFactor: a.cfg.Fraud.HighSeverityFactor,
		CategoryWarnPct:    a.cfg.Fraud.CategoryWarnPct,
		CategoryBreachPct:  a.cfg.Fraud.CategoryBreachPct,
		CategoryHighPct:    a.cfg.Fraud.CategoryHighPct,
		FrequencyWindow:    a.cfg.Fraud.FrequencyWindow,
		FrequencyMedium:    a.cfg.Fraud.FrequencyMedium,
		FrequencyHigh:      a.cfg.Fraud.FrequencyHigh,
		NightEndHour:       a.cfg.Fraud.NightEndHour,
		NightLateHour:      a.cfg.Fraud.NightLateHour,
		NightLookback:      a.cfg.Fraud.NightLookback,
		NightMaxEntries:    a.cfg.Fraud.NightMaxEntries,
	}
}

func (a *App) Run() error {
	a.log.Info("сервер запускается")

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-shutdownChan:
		a.log.Info("получен сигнал завершения", slog.String("signal", sig.String()))
	}

	a.log.Info("приложение останавливается")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("ошибка при остановке http сервера", slog.String("error", err.Error()))
	}

	if a.alertService != nil {
		a.log.Info("остановка alert service")
		if err := a.alertService.Shutdown(ctx); err != nil {
			a.log.Error("ошибка при остановке alert service", slog.String("error", err.Error()))
		}
	}

	if a.kafkaProducer != nil {
		a.log.Info("закрытие kafka producer")
		if err := a.kafkaProducer.Close(); err != nil {
			a.log.Error("ошибка при закрытии kafka producer", slog.String("error", err.Error()))
		}
	}

	if a.categorizerClient != nil {
		if err := a.categorizerClient.Close(); err != nil {
			a.log.Error("ошибка при закрытии клиента категоризатора", slog.String("error", err.Error()))
		}
	}

	a.log.Info("закрытие соединения с базой данных")
	a.pool.Close()

	a.log.Info("закрытие файла логов")
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			a.log.Error("ошибка при закрытии файла логов", slog.String("error", err.Error()))
		}
	}

	a.log.Info("приложение остановлено")
	return nil
}
