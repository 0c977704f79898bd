package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func parseLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidAmount, domain.KindInvalidCardNumber, domain.KindSecretRequired,
		domain.KindSecretFormatInvalid, domain.KindInvalidDailyLimit, domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindAccountInactive, domain.KindCardInactive, domain.KindCardExpired,
		domain.KindInsufficientBalance, domain.KindLimitExceeded, domain.KindDailyLimitExceeded,
		domain.KindPaymentExceedsDebt, domain.KindInvalidSecret:
		return http.StatusUnprocessableEntity
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindNotOwned:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDuplicate, domain.KindConcurrencyConflict:
		return http.StatusConflict
	case domain.KindCircuitOpen:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// details exposes the figures state errors carry for client display.
func details(err error) map[string]string {
	var (
		insufficientFunds *domain.ErrInsufficientFunds
		limitExceeded     *domain.ErrLimitExceeded
		dailyLimit        *domain.ErrDailyLimitExceeded
		exceedsDebt       *domain.ErrPaymentExceedsDebt
		validation        *domain.ErrValidation
	)
	switch {
	case errors.As(err, &insufficientFunds):
		return map[string]string{
			"available": insufficientFunds.Available.String(),
			"required":  insufficientFunds.Required.String(),
		}
	case errors.As(err, &limitExceeded):
		return map[string]string{
			"limit":     limitExceeded.Limit.String(),
			"current":   limitExceeded.Current.String(),
			"requested": limitExceeded.Requested.String(),
		}
	case errors.As(err, &dailyLimit):
		return map[string]string{
			"limit":       dailyLimit.Limit.String(),
			"spent_today": dailyLimit.SpentToday.String(),
			"requested":   dailyLimit.Requested.String(),
		}
	case errors.As(err, &exceedsDebt):
		return map[string]string{
			"current_debt": exceedsDebt.CurrentDebt.String(),
			"requested":    exceedsDebt.Requested.String(),
		}
	case errors.As(err, &validation):
		return map[string]string{"field": validation.Field}
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	switch {
	case status == http.StatusInternalServerError:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, status, "internal server error")
		return
	case kind == domain.KindCircuitOpen:
		logger.Error("circuit breaker open", zap.Error(err))
	case kind == domain.KindConcurrencyConflict:
		logger.Warn("concurrency conflict", zap.Error(err))
	case status == http.StatusUnprocessableEntity, status == http.StatusForbidden, status == http.StatusUnauthorized:
		logger.Warn("request rejected", zap.String("kind", string(kind)), zap.String("error", err.Error()))
	default:
		logger.Debug("request rejected", zap.String("kind", string(kind)), zap.String("error", err.Error()))
	}

	writeJSON(w, status, errorResponse{
		Error:   err.Error(),
		Code:    string(kind),
		Details: details(err),
	})
}
