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
	"time"
)

type TransactionHandler struct {
	service service.Ledger
}

func NewTransactionHandler(service service.Ledger) *TransactionHandler {
	return &TransactionHandler{
		service: service,
	}
}

// Create godoc
// @Summary      Записать доход или расход
// @Description  Создает запись леджера. Расход со способом оплаты wallet списывает средства с баланса
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body models.TransactionRequest true "Данные транзакции"
// @Success      201 {object} models.TransactionResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.CreateTransaction"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	accountID := middlew.GetAccountID(r.Context())

	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	log.Info("create transaction request",
		slog.String("op", op),
		slog.String("account_id", accountID.String()),
		slog.String("kind", string(req.Kind)),
		slog.Float64("amount", req.Amount))

	result, err := h.service.RecordTransaction(r.Context(), accountID, req)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidKind):
			log.Warn("invalid kind", slog.String("op", op), slog.String("kind", string(req.Kind)))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_kind", "Kind must be inflow or outflow")
		case errors.Is(err, custom_err.ErrInvalidAmount):
			log.Warn("invalid amount", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_amount", "Amount must be positive")
		case errors.Is(err, custom_err.ErrInvalidCategory):
			log.Warn("invalid category", slog.String("op", op), slog.String("category", string(req.Category)))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_category", "Unknown category")
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("missing required field", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_field", "description is required")
		case errors.Is(err, custom_err.ErrInsufficientFunds):
			log.Warn("insufficient funds", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "insufficient_funds", "Insufficient funds in the wallet")
		case errors.Is(err, custom_err.ErrDuplicateRequest):
			response.WriteJSONError(w, log, http.StatusConflict, "duplicate_request",
				"Operation with this requestID already processed")
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("account not found", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Account not found")
		case errors.Is(err, custom_err.ErrConflict):
			log.Warn("account is locked by another operation", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusConflict, "conflict", "Account is busy, try again")
		case errors.Is(err, custom_err.ErrTimeout):
			response.WriteJSONError(w, log, http.StatusGatewayTimeout, "timeout", "Operation timed out")
		default:
			log.Error("failed to create transaction", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusCreated, result)
}

// List godoc
// @Summary      История операций
// @Description  Возвращает записи леджера счета от новых к старым с фильтрами и пагинацией
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        kind query string false "Тип записи"
// @Param        category query string false "Категория"
// @Param        from query string false "Начало периода (RFC3339)"
// @Param        to query string false "Конец периода (RFC3339)"
// @Param        page query int false "Номер страницы"
// @Param        limit query int false "Размер страницы (1-100)"
// @Success      200 {object} models.EntryListResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ListTransactions"
	log := middlew.GetLogger(r.Context())

	accountID := middlew.GetAccountID(r.Context())

	filter, err := parseEntryFilter(r)
	if err != nil {
		log.Warn("invalid filter", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	result, err := h.service.ListEntries(r.Context(), accountID, filter)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidKind):
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_kind", "Unknown kind filter")
		case errors.Is(err, custom_err.ErrInvalidCategory):
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_category", "Unknown category filter")
		default:
			log.Error("failed to list transactions", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// SetLimits godoc
// @Summary      Установить лимиты расходов
// @Description  Создает или обновляет месячные лимиты по категориям и общий месячный лимит счета
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body models.SetLimitsRequest true "Лимиты по категориям"
// @Success      200 {object} map[string]string
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /limits [put]
func (h *TransactionHandler) SetLimits(w http.ResponseWriter, r *http.Request) {
	const op = "handler.SetLimits"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	accountID := middlew.GetAccountID(r.Context())

	var req models.SetLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	if err := h.service.SetCategoryLimits(r.Context(), accountID, req); err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidCategory):
			log.Warn("invalid category", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_category", "Unknown category in limits")
		case errors.Is(err, custom_err.ErrInvalidAmount):
			log.Warn("invalid limit", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_amount", "Limit must not be negative")
		case errors.Is(err, custom_err.ErrInvalidInput):
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_field", "Request must set category limits or a monthly limit")
		default:
			log.Error("failed to set limits", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, map[string]string{
		"message": "Limits updated successfully",
	})
}

// GetLimits godoc
// @Summary      Получить лимиты расходов
// @Description  Возвращает общий месячный лимит счета и лимиты по категориям
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} models.LimitsResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /limits [get]
func (h *TransactionHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetLimits"
	log := middlew.GetLogger(r.Context())

	accountID := middlew.GetAccountID(r.Context())

	result, err := h.service.GetCategoryLimits(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Account not found")
		default:
			log.Error("failed to get limits", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

func parseEntryFilter(r *http.Request) (models.EntryFilter, error) {
	var filter models.EntryFilter

	q := r.URL.Query()
	filter.Kind = models.EntryKind(q.Get("kind"))
	filter.Category = models.Category(q.Get("category"))

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("from must be RFC3339 timestamp")
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("to must be RFC3339 timestamp")
		}
		filter.To = &t
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("page must be an integer")
		}
		filter.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("limit must be an integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}
