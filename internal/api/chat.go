package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
)

// requireChatRole enforces the same tester/admin gate the push
// channel's chat topic applies (spec §4.5), kept consistent across
// both the REST read path and the live subscription.
func requireChatRole(w http.ResponseWriter, id auth.Identity) bool {
	if !id.HasRole(auth.RoleTester, auth.RoleAdmin) {
		writeErr(w, apperr.New(apperr.Forbidden, "chat requires tester or admin role"))
		return false
	}
	return true
}

type chatListResponse struct {
	Messages []chatMessageView `json:"messages"`
	Total    int               `json:"total"`
}

type chatMessageView struct {
	ID          uint64 `json:"id"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	SimDay      int    `json:"simDay"`
}

// handleChatList returns a paginated window of the chat log, per spec
// §4.6/§6 (GET /chat/messages?page=N&limit=M).
func (s *Server) handleChatList(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if !requireChatRole(w, id) {
		return
	}

	limit := queryInt(r, "limit", 50)
	page := queryInt(r, "page", 0)
	offset := 0
	if page > 0 {
		offset = page * limit
	}

	msgs, total := s.Chat.Messages(limit, offset)
	out := make([]chatMessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessageView{ID: m.ID, UserID: m.UserID, DisplayName: m.DisplayName, Text: m.Text, SimDay: m.SimDay})
	}
	writeJSON(w, http.StatusOK, chatListResponse{Messages: out, Total: total})
}

type chatPostRequest struct {
	Text   string `json:"text"`
	SimDay int    `json:"simDay"`
}

// handleChatPost appends a chat message on behalf of the authenticated
// caller, per spec §4.6/§6 (POST /chat/messages).
func (s *Server) handleChatPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if !requireChatRole(w, id) {
		return
	}

	var req chatPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	msg, err := s.Chat.Post(id.UserID, req.Text, req.SimDay)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chatMessageView{
		ID: msg.ID, UserID: msg.UserID, DisplayName: msg.DisplayName, Text: msg.Text, SimDay: msg.SimDay,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
