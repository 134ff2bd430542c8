package api

import (
	"encoding/json"
	"net/http"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
	"github.com/marketsim/core/internal/metrics"
	"github.com/marketsim/core/internal/savestore"
	"github.com/marketsim/core/internal/session"
)

// defaultPreset is the preset slot name used when the caller doesn't
// name one explicitly, per spec §4.7's "a code has one or more named
// presets, one of which is active".
const defaultPreset = "default"

type saveCreateResponse struct {
	Code string `json:"code"`
}

// handleSaveCreate mints a fresh SaveCode with no presets yet, per
// spec §6 (POST /saves/create).
func (s *Server) handleSaveCreate(w http.ResponseWriter, r *http.Request) {
	code, err := s.Saves.CreateCode(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saveCreateResponse{Code: code})
}

type saveRecordView struct {
	Code         string               `json:"code"`
	ActivePreset string               `json:"activePreset"`
	Presets      []savestore.PresetMeta `json:"presets"`
}

// handleSaveGet returns a SaveCode's record (metadata only, never a
// snapshot body), per spec §6 (GET /saves/{code}).
func (s *Server) handleSaveGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Saves.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveRecordView{Code: rec.Code, ActivePreset: rec.ActivePreset, Presets: rec.Presets})
}

type savePutRequest struct {
	BotID  string `json:"botId"`
	Preset string `json:"preset"`
}

// handleSavePut persists a live bot session's current state into the
// named code's "default" preset (or req.Preset, if given), per spec §6
// (POST /saves/{code}) and §4.7/§8's save(S) half of the round-trip law.
func (s *Server) handleSavePut(w http.ResponseWriter, r *http.Request) {
	var req savePutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	preset := orDefault(req.Preset, defaultPreset)

	sess := s.resolveSession(w, req.BotID)
	if sess == nil {
		return
	}

	if err := s.Saves.Put(r.Context(), r.PathValue("code"), preset, sess.ToSnapshot()); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type presetLoadResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

// handlePresetGet loads a code's preset into a fresh bot-owned Session
// and returns a bearer token for it, the load(save(S)) half of spec
// §8's round-trip law, per spec §6 (GET /saves/{code}/preset/{name}).
func (s *Server) handlePresetGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Saves.GetPreset(r.Context(), r.PathValue("code"), r.PathValue("name"))
	if err != nil {
		writeErr(w, err)
		return
	}

	botID := r.PathValue("code") + "/" + r.PathValue("name")
	sess := session.Restore(botID, session.OwnerBot, snap, s.Instruments, s.CommissionsOn)
	s.Registry.Register(sess)
	metrics.ActiveSessions.Inc()

	token, err := s.Gate.Issue(botID, auth.RoleUser)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presetLoadResponse{SessionID: sess.ID, Token: token})
}

// handlePresetDelete removes a preset slot, per spec §6
// (DELETE /saves/{code}/preset/{name}) and §4.7's active-preset
// reassignment rule.
func (s *Server) handlePresetDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Saves.DeletePreset(r.Context(), r.PathValue("code"), r.PathValue("name")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
