package handlers

import (
	"encoding/json"
	"errors"
	"gw-ledger/internal/api/middlew"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/service"
	"gw-ledger/pkg/response"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AlertHandler struct {
	service service.Alerts
}

func NewAlertHandler(service service.Alerts) *AlertHandler {
	return &AlertHandler{
		service: service,
	}
}

// List godoc
// @Summary      Список фрод-алертов
// @Description  Возвращает алерты счета от новых к старым с фильтрами по статусу и серьезности
// @Tags         alerts
// @Security     BearerAuth
// @Produce      json
// @Param        status query string false "Статус алерта"
// @Param        severity query string false "Серьезность"
// @Param        page query int false "Номер страницы"
// @Param        limit query int false "Размер страницы (1-100)"
// @Success      200 {object} models.AlertListResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /alerts [get]
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ListAlerts"
	log := middlew.GetLogger(r.Context())

	accountID := middlew.GetAccountID(r.Context())

	var filter models.AlertFilter
	q := r.URL.Query()
	filter.Status = models.AlertStatus(q.Get("status"))
	filter.Severity = models.Severity(q.Get("severity"))
	if raw := q.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			filter.Page = page
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}

	result, err := h.service.List(r.Context(), accountID, filter)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("invalid filter", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_filter", "Unknown status or severity filter")
		default:
			log.Error("failed to list alerts", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// Get godoc
// @Summary      Получить алерт
// @Description  Возвращает один алерт счета по идентификатору
// @Tags         alerts
// @Security     BearerAuth
// @Produce      json
// @Param        alertID path string true "ID алерта"
// @Success      200 {object} models.Alert
// @Failure      404 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /alerts/{alertID} [get]
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetAlert"
	log := middlew.GetLogger(r.Context())

	accountID := middlew.GetAccountID(r.Context())

	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		log.Warn("invalid UUID", slog.String("op", op))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_request", "Invalid alert ID format")
		return
	}

	alert, err := h.service.Get(r.Context(), accountID, alertID)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("alert not found", slog.String("op", op), slog.String("alert_id", alertID.String()))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Alert not found")
		default:
			log.Error("failed to get alert", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, alert)
}

// Review godoc
// @Summary      Ревью алерта
// @Description  Переводит алерт из pending в терминальный статус. Статус confirmed дополнительно помечает запись как подтвержденный фрод
// @Tags         alerts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        alertID path string true "ID алерта"
// @Param        request body models.ReviewRequest true "Решение по алерту"
// @Success      200 {object} models.ReviewResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /alerts/{alertID}/review [post]
func (h *AlertHandler) Review(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ReviewAlert"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	accountID := middlew.GetAccountID(r.Context())

	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		log.Warn("invalid UUID", slog.String("op", op))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_request", "Invalid alert ID format")
		return
	}

	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	log.Info("alert review request",
		slog.String("op", op),
		slog.String("alert_id", alertID.String()),
		slog.String("status", string(req.Status)))

	result, err := h.service.Review(r.Context(), accountID, alertID, accountID, req)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("alert not found", slog.String("op", op), slog.String("alert_id", alertID.String()))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Alert not found")
		case errors.Is(err, custom_err.ErrInvalidState):
			log.Info("alert already reviewed", slog.String("op", op), slog.String("alert_id", alertID.String()))
			response.WriteJSONError(w, log, http.StatusConflict, "invalid_state", "Alert has already been reviewed")
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("invalid review status", slog.String("op", op), slog.String("status", string(req.Status)))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_status", "Status must be reviewed, dismissed or confirmed")
		default:
			log.Error("failed to review alert", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// Summary godoc
// @Summary      Сводка по алертам
// @Description  Возвращает количество алертов по статусам, серьезности и типам, плюс последние алерты
// @Tags         alerts
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} models.AlertSummary
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /alerts/summary [get]
func (h *AlertHandler) Summary(w http.ResponseWriter, r *http.Request) {
	const op = "handler.AlertSummary"
	log := middlew.GetLogger(r.Context())

	accountID := middlew.GetAccountID(r.Context())

	summary, err := h.service.Summary(r.Context(), accountID)
	if err != nil {
		log.Error("failed to build alert summary", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, summary)
}
