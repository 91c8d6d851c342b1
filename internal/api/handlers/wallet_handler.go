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
)

type WalletHandler struct {
	service service.Ledger
}

func NewWalletHandler(service service.Ledger) *WalletHandler {
	return &WalletHandler{
		service: service,
	}
}

// GetBalance godoc
// @Summary      Получить баланс кошелька
// @Description  Возвращает текущий баланс счета и валюту
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} models.BalanceResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetBalance"
	log := middlew.GetLogger(r.Context())

	accountID := middlew.GetAccountID(r.Context())

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("account not found", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Account not found")
		default:
			log.Error("failed to get balance", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to retrieve balance")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, balance)
}

// Deposit godoc
// @Summary      Пополнить кошелек
// @Description  Пополняет кошелек и записывает приход в леджер
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body models.DepositRequest true "Данные пополнения"
// @Success      200 {object} models.DepositResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /wallet/deposit [post]
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Deposit"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	accountID := middlew.GetAccountID(r.Context())

	var req models.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	log.Info("deposit request",
		slog.String("op", op),
		slog.String("account_id", accountID.String()),
		slog.Float64("amount", req.Amount))

	result, err := h.service.Deposit(r.Context(), accountID, req)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("account not found", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Account not found")
		case errors.Is(err, custom_err.ErrInvalidAmount):
			log.Warn("invalid amount", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_amount", "Amount must be positive")
		case errors.Is(err, custom_err.ErrDepositCeiling):
			log.Warn("deposit exceeds ceiling", slog.String("op", op), slog.Float64("amount", req.Amount))
			response.WriteJSONError(w, log, http.StatusBadRequest, "deposit_ceiling", "Deposit amount exceeds the single-operation ceiling")
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("requestID is required", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_field", "requestID is required")
		case errors.Is(err, custom_err.ErrConflict):
			log.Warn("account is locked by another operation", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusConflict, "conflict", "Account is busy, try again")
		case errors.Is(err, custom_err.ErrTimeout):
			response.WriteJSONError(w, log, http.StatusGatewayTimeout, "timeout", "Operation timed out")
		default:
			log.Error("failed to deposit", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// Transfer godoc
// @Summary      Перевести средства другому пользователю
// @Description  Атомарно списывает у отправителя и зачисляет получателю, создавая пару связанных записей
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body models.TransferRequest true "Данные перевода"
// @Success      200 {object} models.TransferResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /wallet/transfer [post]
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Transfer"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	accountID := middlew.GetAccountID(r.Context())

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	log.Info("transfer request",
		slog.String("op", op),
		slog.String("account_id", accountID.String()),
		slog.String("to_username", req.ToUsername),
		slog.Float64("amount", req.Amount))

	result, err := h.service.Transfer(r.Context(), accountID, req)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrNotFound):
			log.Info("recipient not found", slog.String("op", op), slog.String("to_username", req.ToUsername))
			response.WriteJSONError(w, log, http.StatusNotFound, "not_found", "Recipient not found")
		case errors.Is(err, custom_err.ErrSelfTransfer):
			log.Warn("self transfer rejected", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "self_transfer", "Cannot transfer to your own account")
		case errors.Is(err, custom_err.ErrInsufficientFunds):
			log.Warn("insufficient funds", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "insufficient_funds", "Insufficient funds in the wallet")
		case errors.Is(err, custom_err.ErrInvalidAmount):
			log.Warn("invalid amount", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_amount", "Amount must be positive")
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("missing required field", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_field", "to_username and requestID are required")
		case errors.Is(err, custom_err.ErrConflict):
			log.Warn("account is locked by another operation", slog.String("op", op))
			response.WriteJSONError(w, log, http.StatusConflict, "conflict", "Account is busy, try again")
		case errors.Is(err, custom_err.ErrTimeout):
			response.WriteJSONError(w, log, http.StatusGatewayTimeout, "timeout", "Operation timed out")
		default:
			log.Error("failed to transfer", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}
