package service

import (
	"context"
	"errors"
	"fmt"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/kafka"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage/postgres"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Alerts interface {
	CreateFromSignals(ctx context.Context, entry *models.LedgerEntry, account *models.Account, signals []*models.FraudSignal) []*models.Alert
	Review(ctx context.Context, accountID, alertID, reviewer uuid.UUID, req models.ReviewRequest) (*models.ReviewResponse, error)
	Get(ctx context.Context, accountID, alertID uuid.UUID) (*models.Alert, error)
	List(ctx context.Context, accountID uuid.UUID, filter models.AlertFilter) (*models.AlertListResponse, error)
	Summary(ctx context.Context, accountID uuid.UUID) (*models.AlertSummary, error)
}

const recentAlertsLimit = 5

type AlertService struct {
	alertRepo     postgres.AlertRepository
	ledgerRepo    postgres.LedgerRepository
	kafkaProducer kafka.Producer
	log           *slog.Logger

	eventQueue chan models.FraudAlertEvent
	wg         sync.WaitGroup
	stopCh     chan struct{}
}

func NewAlertService(
	alertRepo postgres.AlertRepository,
	ledgerRepo postgres.LedgerRepository,
	kafkaProducer kafka.Producer,
	log *slog.Logger,
) *AlertService {
	svc := &AlertService{
		alertRepo:     alertRepo,
		ledgerRepo:    ledgerRepo,
		kafkaProducer: kafkaProducer,
		log:           log,
		eventQueue:    make(chan models.FraudAlertEvent, 100),
		stopCh:        make(chan struct{}),
	}

	for i := 0; i < 5; i++ {
		svc.wg.Add(1)
		go svc.notifyWorker(i)
	}

	return svc
}

// notifyWorker разбирает очередь уведомлений. Отправка fire-and-forget:
// денежная операция и создание алерта никогда не ждут её результата.
func (s *AlertService) notifyWorker(id int) {
	defer s.wg.Done()
	s.log.Info("notify worker started", slog.Int("worker_id", id))

	for {
		select {
		case event := <-s.eventQueue:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.kafkaProducer.SendFraudAlertEvent(ctx, event); err != nil {
				s.log.Error("alert notification failed",
					slog.Int("worker_id", id),
					slog.String("alert_id", event.AlertID.String()),
					slog.String("error", err.Error()))
			} else {
				if err := s.alertRepo.MarkNotified(ctx, event.AlertID); err != nil {
					s.log.Error("failed to mark alert notified",
						slog.String("alert_id", event.AlertID.String()),
						slog.String("error", err.Error()))
				}
				s.log.Info("alert notification sent",
					slog.Int("worker_id", id),
					slog.String("alert_id", event.AlertID.String()))
			}
			cancel()

		case <-s.stopCh:
			s.log.Info("notify worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

func (s *AlertService) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down alert service")

	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("all notify workers stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("shutdown timeout exceeded")
		return ctx.Err()
	}
}

// CreateFromSignals сохраняет по алерту на каждый сигнал и, если политика
// счета разрешает, ставит в очередь ровно одно уведомление на алерт.
// Сбой отправки не блокирует и не откатывает создание алерта.
func (s *AlertService) CreateFromSignals(ctx context.Context, entry *models.LedgerEntry, account *models.Account, signals []*models.FraudSignal) []*models.Alert {
	const op = "service.CreateFromSignals"

	var alerts []*models.Alert
	for _, signal := range signals {
		alert := &models.Alert{
			ID:        uuid.New(),
			AccountID: account.ID,
			EntryID:   entry.ID,
			AlertType: signal.Type,
			Severity:  signal.Severity,
			Message:   signal.Message,
			Details:   signal.Details,
		}

		if err := s.alertRepo.Create(ctx, alert); err != nil {
			s.log.Error("failed to create alert",
				slog.String("op", op),
				slog.String("entry_id", entry.ID.String()),
				slog.String("alert_type", string(signal.Type)),
				slog.String("error", err.Error()))
			continue
		}
		alerts = append(alerts, alert)

		if !account.NotificationsEnabled() {
			continue
		}

		event := models.FraudAlertEvent{
			AlertID:   alert.ID,
			AccountID: account.ID,
			Email:     account.Email,
			EntryID:   entry.ID,
			AlertType: alert.AlertType,
			Severity:  alert.Severity,
			Message:   alert.Message,
			Amount:    models.AmountFromMinorUnits(entry.Amount),
			Timestamp: alert.CreatedAt,
		}

		select {
		case s.eventQueue <- event:
			s.log.Debug("уведомление поставлено в очередь", slog.String("alert_id", alert.ID.String()))
		default:
			s.log.Error("очередь уведомлений переполнена, событие отброшено",
				slog.String("alert_id", alert.ID.String()))
		}
	}

	return alerts
}

// Review единственный разрешенный переход жизненного цикла алерта
func (s *AlertService) Review(ctx context.Context, accountID, alertID, reviewer uuid.UUID, req models.ReviewRequest) (*models.ReviewResponse, error) {
	const op = "service.ReviewAlert"

	if !req.Status.IsValid() || !req.Status.IsTerminal() {
		return nil, custom_err.ErrInvalidInput
	}

	alert, err := s.alertRepo.Review(ctx, accountID, alertID, req.Status, req.Notes, reviewer)
	if err != nil {
		if errors.Is(err, custom_err.ErrInvalidState) {
			// отличить закрытый алерт от несуществующего
			if _, getErr := s.alertRepo.GetByID(ctx, accountID, alertID); getErr != nil {
				return nil, getErr
			}
			return nil, custom_err.ErrInvalidState
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if alert.Status == models.StatusConfirmed {
		if err := s.ledgerRepo.CreateFraudTag(ctx, alert.EntryID, alert.AlertType, alert.Severity, "Confirmed by user review"); err != nil {
			s.log.Error("failed to append confirmation tag",
				slog.String("op", op),
				slog.String("entry_id", alert.EntryID.String()),
				slog.String("error", err.Error()))
		}
	}

	s.log.Info("alert reviewed",
		slog.String("op", op),
		slog.String("alert_id", alert.ID.String()),
		slog.String("status", string(alert.Status)))

	return &models.ReviewResponse{
		Message: "Fraud alert reviewed successfully",
		Alert:   alert,
	}, nil
}

func (s *AlertService) Get(ctx context.Context, accountID, alertID uuid.UUID) (*models.Alert, error) {
	const op = "service.GetAlert"

	alert, err := s.alertRepo.GetByID(ctx, accountID, alertID)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return alert, nil
}

func (s *AlertService) List(ctx context.Context, accountID uuid.UUID, filter models.AlertFilter) (*models.AlertListResponse, error) {
	const op = "service.ListAlerts"

	filter.Normalize()
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, custom_err.ErrInvalidInput
	}
	if filter.Severity != "" && !filter.Severity.IsValid() {
		return nil, custom_err.ErrInvalidInput
	}

	alerts, total, err := s.alertRepo.List(ctx, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AlertListResponse{
		Alerts:     alerts,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

func (s *AlertService) Summary(ctx context.Context, accountID uuid.UUID) (*models.AlertSummary, error) {
	const op = "service.AlertSummary"

	byStatus, err := s.alertRepo.CountsByStatus(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	bySeverity, err := s.alertRepo.CountsBySeverity(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byType, err := s.alertRepo.CountsByType(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	recent, err := s.alertRepo.Recent(ctx, accountID, recentAlertsLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AlertSummary{
		ByStatus:     byStatus,
		BySeverity:   bySeverity,
		ByType:       byType,
		RecentAlerts: recent,
	}, nil
}
