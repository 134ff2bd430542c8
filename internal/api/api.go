// Package api implements the ControlAPI component (spec §4/§6): the
// HTTP request surface over SessionRegistry, SaveStore, the user
// store, and Chat. Routing and the writeJSON/writeError/resolve*
// helper shape are lifted directly from the teacher's internal/api
// (stdlib http.ServeMux with Go 1.22 method+pattern routes, one
// resolve-or-404 helper per lookup key) — generalized from a single
// resolveTicker helper to one apperr.Kind → HTTP status translator
// that every handler shares, per spec §7.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
	"github.com/marketsim/core/internal/catalog"
	"github.com/marketsim/core/internal/chat"
	"github.com/marketsim/core/internal/metrics"
	"github.com/marketsim/core/internal/priceengine"
	"github.com/marketsim/core/internal/savestore"
	"github.com/marketsim/core/internal/session"
	"github.com/marketsim/core/internal/users"
)

// Server wires the ControlAPI's dependencies and exposes Register to
// attach routes to a mux, the same shape as the teacher's api.Server.
type Server struct {
	Registry    *session.Registry
	Saves       savestore.Store
	Users       users.Store
	Chat        *chat.Room
	Gate        *auth.Gate
	Instruments []catalog.Instrument
	ByTicker    map[string]*catalog.Instrument

	CommissionsOn bool
	SeedRNG       func() *priceengine.RNG

	startAt time.Time
}

// NewServer creates a Server over its component dependencies.
func NewServer(registry *session.Registry, saves savestore.Store, userStore users.Store, room *chat.Room, gate *auth.Gate, instruments []catalog.Instrument, commissionsOn bool, seedRNG func() *priceengine.RNG) *Server {
	byTicker := make(map[string]*catalog.Instrument, len(instruments))
	for i := range instruments {
		byTicker[instruments[i].Symbol] = &instruments[i]
	}
	return &Server{
		Registry:      registry,
		Saves:         saves,
		Users:         userStore,
		Chat:          room,
		Gate:          gate,
		Instruments:   instruments,
		ByTicker:      byTicker,
		CommissionsOn: commissionsOn,
		SeedRNG:       seedRNG,
		startAt:       time.Now(),
	}
}

// Register attaches every ControlAPI route to mux, per spec §6's
// request-surface table.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/profile", s.handleProfile)

	mux.HandleFunc("GET /chat/messages", s.handleChatList)
	mux.HandleFunc("POST /chat/messages", s.handleChatPost)

	mux.HandleFunc("POST /bot/register", s.handleBotRegister)
	mux.HandleFunc("POST /bot/order", s.handleBotOrder)
	mux.HandleFunc("GET /bot/{id}/stats", s.handleBotStats)

	mux.HandleFunc("GET /market/data", s.handleMarketData)
	mux.HandleFunc("GET /portfolio", s.handlePortfolio)

	mux.HandleFunc("POST /saves/create", s.handleSaveCreate)
	mux.HandleFunc("GET /saves/{code}", s.handleSaveGet)
	mux.HandleFunc("POST /saves/{code}", s.handleSavePut)
	mux.HandleFunc("GET /saves/{code}/preset/{name}", s.handlePresetGet)
	mux.HandleFunc("DELETE /saves/{code}/preset/{name}", s.handlePresetDelete)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the stable {error, kind} shape every failed request
// returns, per spec §7 ("a stable tag and a human-readable message").
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeErr translates err to an HTTP status via apperr.Kind and writes
// the stable error body, the one shared status-mapping point spec §7
// calls for ("mapped to HTTP where applicable").
func writeErr(w http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, "fatal"

	var ae *apperr.Error
	if e, ok := err.(*apperr.Error); ok {
		ae = e
	} else if unwrapped, ok := asAppErr(err); ok {
		ae = unwrapped
	}

	if ae != nil {
		kind = string(ae.Kind)
		switch ae.Kind {
		case apperr.Validation:
			status = http.StatusBadRequest
		case apperr.Auth:
			status = http.StatusUnauthorized
		case apperr.Forbidden:
			status = http.StatusForbidden
		case apperr.NotFound:
			status = http.StatusNotFound
		case apperr.Conflict:
			status = http.StatusConflict
		case apperr.Domain:
			status = http.StatusBadRequest
		case apperr.Backpressure:
			status = http.StatusServiceUnavailable
		case apperr.Transient:
			status = http.StatusServiceUnavailable
		case apperr.Fatal:
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorBody{Error: ae.Message, Kind: kind})
		return
	}

	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func asAppErr(err error) (*apperr.Error, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*apperr.Error); ok {
			return e, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// resolveSession looks up id in the registry, writing 404 if absent.
// Returns nil if the session was not found (response already written).
func (s *Server) resolveSession(w http.ResponseWriter, id string) *session.Session {
	sess, ok := s.Registry.Get(id)
	if !ok {
		writeErr(w, apperr.New(apperr.NotFound, "unknown session %q", id))
		return nil
	}
	return sess
}

// authenticate resolves the caller's identity from the request's
// bearer credential, writing 401 on failure.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := s.Gate.Resolve(r)
	if err != nil {
		writeErr(w, err)
		return auth.Identity{}, false
	}
	return id, true
}
