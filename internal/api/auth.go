package api

import (
	"encoding/json"
	"net/http"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
	"github.com/marketsim/core/internal/users"
)

type registerRequest struct {
	Identifier   string `json:"identifier"`
	Password     string `json:"password"`
	DisplayName  string `json:"displayName"`
}

type userProfile struct {
	ID          string       `json:"id"`
	Identifier  string       `json:"identifier"`
	DisplayName string       `json:"displayName"`
	Role        auth.Role    `json:"role"`
	Stats       usersStats   `json:"stats"`
}

type usersStats struct {
	GamesPlayed   int     `json:"gamesPlayed"`
	BestReturn    float64 `json:"bestReturn"`
	AverageReturn float64 `json:"averageReturn"`
}

// handleRegister creates a new user account at role "user" — the
// default, un-gated self-registration path. Seeding admin/tester
// accounts at elevated roles is done at process start from
// config.AdminIdentifier/TesterIdentifier (see cmd/marketsim), not
// through this endpoint, per spec §6 ("admin-gated unless open").
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeErr(w, apperr.New(apperr.Validation, "identifier and password are required"))
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Identifier
	}

	u, err := s.Users.Create(r.Context(), req.Identifier, req.DisplayName, req.Password, auth.RoleUser)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfile(u))
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  userProfile `json:"user"`
}

// handleLogin issues a bearer credential for a matching identifier/
// password pair. Password comparison is a direct equality check
// against the stored PasswordHash — this core never hashes or verifies
// a hash itself, per spec §1's "password hashing... is an external
// collaborator's concern"; a deployment wires a hashing proxy in front
// of this endpoint, or pre-hashes client-side before calling it.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	u, err := s.Users.FindByIdentifier(r.Context(), req.Identifier)
	if err != nil {
		writeErr(w, apperr.New(apperr.Auth, "invalid identifier or password"))
		return
	}
	if u.PasswordHash != req.Password {
		writeErr(w, apperr.New(apperr.Auth, "invalid identifier or password"))
		return
	}

	token, err := s.Gate.Issue(u.ID, u.Role)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toProfile(u)})
}

// handleProfile returns the authenticated caller's profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	u, err := s.Users.FindByID(r.Context(), id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(u))
}

func toProfile(u users.User) userProfile {
	return userProfile{
		ID:          u.ID,
		Identifier:  u.Identifier,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Stats: usersStats{
			GamesPlayed:   u.Stats.GamesPlayed,
			BestReturn:    u.Stats.BestReturn,
			AverageReturn: u.Stats.AverageReturn,
		},
	}
}
