package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
	"github.com/marketsim/core/internal/metrics"
	"github.com/marketsim/core/internal/portfolio"
	"github.com/marketsim/core/internal/session"
)

// botStartingCash is the default seed a fresh bot registration's
// Portfolio is created with, per spec §4.4; a positive startingCapital
// in the request replaces it.
const botStartingCash = 100_000.0

type botRegisterRequest struct {
	Mode             string  `json:"mode"`
	RiskLevel        string  `json:"riskLevel"`
	Difficulty       string  `json:"difficulty"`
	StartingCapital  float64 `json:"startingCapital"`
	MarginEnabled    bool    `json:"marginEnabled"`
	MarginMultiplier float64 `json:"marginMultiplier"`
}

type botRegisterResponse struct {
	BotID     string `json:"botId"`
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

// handleBotRegister creates a fresh bot-owned Session, per spec §4.4 /
// §6 (POST /bot/register). The returned bearer token authorizes
// subsequent /bot/order calls for this bot and its push-channel
// handshake; /bot/{id}/stats is keyed by sessionId alone and does not
// check it.
func (s *Server) handleBotRegister(w http.ResponseWriter, r *http.Request) {
	var req botRegisterRequest
	json.NewDecoder(r.Body).Decode(&req) // empty body = defaults

	botID := uuid.NewString()

	cfg := session.Config{
		StartingCapital:  botStartingCash,
		RiskLevel:        session.RiskLevel(orDefault(req.RiskLevel, string(session.RiskModerate))),
		Difficulty:       session.Difficulty(orDefault(req.Difficulty, string(session.DifficultyMedium))),
		Mode:             session.Mode(orDefault(req.Mode, string(session.ModeClassic))),
		MarginEnabled:    req.MarginEnabled,
		MarginMultiplier: req.MarginMultiplier,
	}
	if req.StartingCapital > 0 {
		cfg.StartingCapital = req.StartingCapital
	}

	sess := session.New(botID, session.OwnerBot, cfg, s.Instruments, s.SeedRNG(), s.CommissionsOn)
	s.Registry.Register(sess)
	metrics.ActiveSessions.Inc()

	token, err := s.Gate.Issue(botID, auth.RoleUser)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, botRegisterResponse{BotID: botID, SessionID: sess.ID, Token: token})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type botOrderRequest struct {
	SessionID string `json:"sessionId"`
	Kind      string `json:"kind"`
	Symbol    string `json:"symbol"`
	Quantity  int    `json:"quantity"`
}

type botOrderResponse struct {
	Status         string  `json:"status"`
	TradeID        uint64  `json:"tradeId,omitempty"`
	ExecutionPrice float64 `json:"executionPrice,omitempty"`
	Commission     float64 `json:"commission,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// handleBotOrder submits an order for a registered bot session, per
// spec §6 (POST /bot/order). Domain-kind rejections (InsufficientCash,
// DayTradeLimitExceeded, ...) are not HTTP errors — they come back as
// 200 with status=rejected, per spec §7's bot-order-path carve-out;
// every other apperr.Kind maps through the shared writeErr translator.
func (s *Server) handleBotOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req botOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	sess := s.resolveSession(w, req.SessionID)
	if sess == nil {
		return
	}
	if id.UserID != sess.Owner {
		writeErr(w, apperr.New(apperr.Auth, "bearer credential does not belong to session %q", req.SessionID))
		return
	}

	trade, err := sess.Execute(portfolio.TradeKind(req.Kind), req.Symbol, req.Quantity)
	if err != nil {
		if apperr.Is(err, apperr.Domain) {
			metrics.OrdersRejected.WithLabelValues(string(apperr.Domain)).Inc()
			writeJSON(w, http.StatusOK, botOrderResponse{Status: "rejected", Reason: err.Error()})
			return
		}
		if ae, ok := err.(*apperr.Error); ok {
			metrics.OrdersRejected.WithLabelValues(string(ae.Kind)).Inc()
		}
		writeErr(w, err)
		return
	}

	metrics.OrdersAdmitted.WithLabelValues(string(trade.Kind)).Inc()
	writeJSON(w, http.StatusCreated, botOrderResponse{
		Status:         "filled",
		TradeID:        trade.ID,
		ExecutionPrice: trade.ExecutionPrice,
		Commission:     trade.Commission,
	})
}

// handleBotStats returns the bot-stats aggregation view, per spec §6
// (GET /bot/{id}/stats). {id} is the sessionId returned at registration.
func (s *Server) handleBotStats(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r.PathValue("id"))
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.Stats())
}
