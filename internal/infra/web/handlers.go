package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/infra/logging"
	"openapp-settlement/internal/infra/metrics"
	"openapp-settlement/internal/usecase"
)

// paymentActionRequest is the single settlement entrypoint body. The action
// field selects the phase.
type paymentActionRequest struct {
	Action    string          `json:"action"`
	PaymentID string          `json:"paymentId"`
	TxID      string          `json:"txid"`
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
	Metadata  model.Metadata  `json:"metadata"`
}

type verifiedCompleteRequest struct {
	PaymentID string         `json:"paymentId"`
	TxID      string         `json:"txid"`
	Metadata  model.Metadata `json:"metadata"`
}

func (s *Server) handlePaymentAction(w http.ResponseWriter, r *http.Request) {
	var req paymentActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentID == "" {
		writeError(w, http.StatusBadRequest, "paymentId is required")
		return
	}

	// The action string is client-supplied; clamp it before it becomes a
	// metric label.
	action := req.Action
	switch action {
	case "approve", "complete", "cancel":
	default:
		action = "unknown"
	}

	start := time.Now()
	outcome := "completed"
	defer func() {
		metrics.IncSettlement(action, outcome)
		metrics.ObserveSettlementLatency(action, float64(time.Since(start).Milliseconds()))
	}()

	ctx := logging.WithPaymentID(r.Context(), req.PaymentID)
	switch req.Action {
	case "approve":
		np, err := s.settlementUC.Approve(ctx, usecase.ApproveRequest{
			PaymentID: req.PaymentID,
			UserID:    req.UserID,
			Amount:    req.Amount,
			Memo:      req.Memo,
			Metadata:  req.Metadata,
		})
		if err != nil {
			outcome = "failed"
			s.writeSettlementError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": np})

	case "complete":
		res, err := s.settlementUC.Complete(ctx, usecase.CompleteRequest{
			PaymentID: req.PaymentID,
			TxID:      req.TxID,
			UserID:    req.UserID,
			Amount:    req.Amount,
			Memo:      req.Memo,
			Metadata:  req.Metadata,
		})
		if err != nil {
			outcome = failureOutcome(err)
			s.writeSettlementError(ctx, w, err)
			return
		}
		if res.Replayed {
			outcome = "replayed"
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": res.Payment})

	case "cancel":
		if err := s.settlementUC.Cancel(ctx, req.PaymentID); err != nil {
			outcome = "failed"
			s.writeSettlementError(ctx, w, err)
			return
		}
		outcome = "cancelled"
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		outcome = "failed"
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

// handleVerifiedComplete is the server-verified completion path. Its response
// envelope differs from the action endpoint: failures carry diagnostic
// details and a timestamp.
func (s *Server) handleVerifiedComplete(w http.ResponseWriter, r *http.Request) {
	var req verifiedCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeVerifiedError(r.Context(), w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.PaymentID == "" || req.TxID == "" {
		s.writeVerifiedError(r.Context(), w, http.StatusBadRequest, "paymentId and txid are required", nil)
		return
	}

	start := time.Now()
	outcome := "completed"
	defer func() {
		metrics.IncSettlement("verified_complete", outcome)
		metrics.ObserveSettlementLatency("verified_complete", float64(time.Since(start).Milliseconds()))
	}()

	ctx := logging.WithPaymentID(r.Context(), req.PaymentID)
	res, err := s.settlementUC.CompleteVerified(ctx, req.PaymentID, req.TxID, req.Metadata)
	if err != nil {
		outcome = failureOutcome(err)
		if errors.Is(err, domain.ErrSettlementInFlight) {
			s.writeVerifiedError(ctx, w, http.StatusConflict, "settlement already in progress", err)
			return
		}
		s.writeVerifiedError(ctx, w, http.StatusInternalServerError, "payment completion failed", err)
		return
	}
	if res.Replayed {
		outcome = "replayed"
	}

	msg := "payment completed"
	if res.Replayed {
		msg = "payment already completed"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"payment": res.Payment,
		"message": msg,
	})
}

type adminLoginRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := s.auth.Login(w, req.APIKey)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeveloperEarnings(w http.ResponseWriter, r *http.Request) {
	developerID := chi.URLParam(r, "developerID")
	if developerID == "" {
		writeError(w, http.StatusBadRequest, "developer id is required")
		return
	}
	summary, err := s.earningsUC.DeveloperSummary(r.Context(), developerID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load earnings")
		return
	}

	recent := make([]map[string]any, 0, len(summary.Recent))
	for _, rec := range summary.Recent {
		recent = append(recent, map[string]any{
			"id":              rec.ID,
			"app_id":          rec.AppID,
			"payment_id":      rec.PaymentRowID,
			"total_amount":    rec.TotalAmount.String(),
			"developer_share": rec.DeveloperShare.String(),
			"platform_fee":    rec.PlatformFee.String(),
			"created_at":      rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"developer_id":    summary.DeveloperID,
			"gross":           summary.Totals.Gross.String(),
			"developer_share": summary.Totals.DeveloperShare.String(),
			"platform_fee":    summary.Totals.PlatformFee.String(),
			"purchases":       summary.Totals.Purchases,
			"recent":          recent,
		},
	})
}

func (s *Server) handleProfileSubscription(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	if profileID == "" {
		writeError(w, http.StatusBadRequest, "profile id is required")
		return
	}
	ctx := logging.WithProfileID(r.Context(), profileID)
	eff, err := s.subUC.Effective(ctx, profileID)
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("subscription lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}
	data := map[string]any{
		"profile_id": profileID,
		"plan":       string(eff.Plan),
		"status":     string(eff.Status),
	}
	if eff.Record != nil {
		data["billing_period"] = string(eff.Record.BillingPeriod)
		data["end_date"] = eff.Record.EndDate
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (s *Server) writeSettlementError(ctx context.Context, w http.ResponseWriter, err error) {
	logging.With(ctx, s.log).Error().Err(err).Msg("settlement request failed")
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSettlementInFlight):
		writeError(w, http.StatusConflict, "settlement already in progress")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment not found")
	default:
		writeError(w, http.StatusInternalServerError, "settlement failed")
	}
}

func (s *Server) writeVerifiedError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
		logging.With(ctx, s.log).Error().Err(err).Msg("verified completion failed")
	}
	writeJSON(w, status, map[string]any{
		"success":   false,
		"error":     msg,
		"details":   details,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func failureOutcome(err error) string {
	if errors.Is(err, domain.ErrSettlementInFlight) {
		return "conflict"
	}
	return "failed"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
