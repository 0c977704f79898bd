package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/bank-ledger-go/internal/domain"
	"github.com/boddenberg/bank-ledger-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Dev Tools Handlers
// ============================================================

// devTokenHandler signs an access token for any user id. Only mounted when
// development auth is enabled.
func devTokenHandler(tokens *service.TokenService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/dev/token")
		defer span.End()

		var req domain.DevTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := tokens.SignAccessToken(req.UserID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("dev token issued", zap.String("user_id", req.UserID))
		writeJSON(w, http.StatusOK, domain.DevTokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int(tokens.TTL().Seconds()),
		})
	}
}
