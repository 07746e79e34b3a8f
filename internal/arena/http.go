package arena

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mathpets/battle-arena/internal/auth"
	"github.com/mathpets/battle-arena/internal/logging"
	httperrors "github.com/mathpets/battle-arena/pkg/http/errors"
)

// HTTPHandlers provides the REST surface for battles. Logging is request
// scoped: the auth middleware put a logger carrying the user id in context.
type HTTPHandlers struct {
	service *Service
}

// NewHTTPHandlers creates HTTP handlers for arena endpoints.
func NewHTTPHandlers(service *Service) *HTTPHandlers {
	return &HTTPHandlers{service: service}
}

type joinQueueRequest struct {
	Stake int64 `json:"stake"`
}

// JoinQueue handles POST /v1/queue/join
func (h *HTTPHandlers) JoinQueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Unauthorized")
		return
	}

	var req joinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	st, err := h.service.JoinQueue(r.Context(), userID, req.Stake)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"matchId": st.Match.ID.String(),
		"status":  st.Match.Status,
	})
}

// Ping handles POST /v1/match/{id}/ping
func (h *HTTPHandlers) Ping(w http.ResponseWriter, r *http.Request) {
	userID, matchID, ok := h.matchRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Ping(r.Context(), userID, matchID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// State handles GET /v1/match/{id}/state
func (h *HTTPHandlers) State(w http.ResponseWriter, r *http.Request) {
	userID, matchID, ok := h.matchRequest(w, r)
	if !ok {
		return
	}

	st, err := h.service.State(r.Context(), userID, matchID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"match": matchToResponse(st),
	})
}

// Task handles GET /v1/match/{id}/task
func (h *HTTPHandlers) Task(w http.ResponseWriter, r *http.Request) {
	userID, matchID, ok := h.matchRequest(w, r)
	if !ok {
		return
	}

	task, err := h.service.TaskFor(r.Context(), userID, matchID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"taskId": task.TaskID.String(),
		"a":      task.A,
		"b":      task.B,
		"op":     task.Op,
	})
}

type answerRequest struct {
	TaskID string      `json:"taskId"`
	Answer json.Number `json:"answer"`
}

// Answer handles POST /v1/match/{id}/answer
func (h *HTTPHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	userID, matchID, ok := h.matchRequest(w, r)
	if !ok {
		return
	}

	var req answerRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidTask, "taskId required")
		return
	}
	value, err := req.Answer.Int64()
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "answer must be an integer")
		return
	}

	correct, err := h.service.Answer(r.Context(), userID, matchID, taskID, int(value))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"correct": correct,
	})
}

// Leave handles POST /v1/match/{id}/leave
func (h *HTTPHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	userID, matchID, ok := h.matchRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Leave(r.Context(), userID, matchID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// Finish handles POST /v1/match/{id}/finish
func (h *HTTPHandlers) Finish(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := h.matchRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.ForceFinish(r.Context(), matchID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

type inspectRequest struct {
	TargetUserID string `json:"targetUserId"`
}

// Inspect handles POST /v1/inspect
func (h *HTTPHandlers) Inspect(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Unauthorized")
		return
	}

	var req inspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "targetUserId required")
		return
	}

	target, cost, err := h.service.Inspect(r.Context(), userID, targetID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"cost": cost,
		"target": map[string]interface{}{
			"userId":         target.ID.String(),
			"username":       target.Username,
			"name":           target.DisplayName,
			"battleEarnings": target.BattleEarnings,
			"wins":           target.BattleWins,
			"losses":         target.BattleLosses,
		},
	})
}

func (h *HTTPHandlers) matchRequest(w http.ResponseWriter, r *http.Request) (userID, matchID uuid.UUID, ok bool) {
	userID, ok = auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeMatchNotFound, "Match not found")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, matchID, true
}

func matchToResponse(st *MatchState) map[string]interface{} {
	participants := make([]map[string]interface{}, len(st.Participants))
	for i, p := range st.Participants {
		participants[i] = map[string]interface{}{
			"userId":   p.UserID.String(),
			"username": p.Username,
			"score":    p.Score,
			"leftAt":   formatTimePtr(p.LeftAt),
		}
	}

	resp := map[string]interface{}{
		"id":           st.Match.ID.String(),
		"stake":        st.Match.Stake,
		"status":       st.Match.Status,
		"startedAt":    formatTimePtr(st.Match.StartedAt),
		"endsAt":       formatTimePtr(st.Match.EndsAt),
		"reason":       st.Match.Reason,
		"winnerUserId": nil,
		"systemFee":    st.Match.SystemFee,
		"participants": participants,
	}
	if st.Match.WinnerUserID != nil {
		resp["winnerUserId"] = st.Match.WinnerUserID.String()
	}
	return resp
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidStake):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidStake, "invalid stake")
	case errors.Is(err, ErrInsufficientCoins):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInsufficientCoins, "not enough coins")
	case errors.Is(err, ErrMatchNotActive):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMatchNotActive, "match not active")
	case errors.Is(err, ErrMatchEnded):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMatchEnded, "match ended")
	case errors.Is(err, ErrInvalidTask):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidTask, "invalid task")
	case errors.Is(err, ErrUserNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeUserNotFound, "User not found")
	case errors.Is(err, ErrTargetNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeTargetNotFound, "Target not found")
	case errors.Is(err, ErrMatchNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeMatchNotFound, "Match not found")
	case errors.Is(err, ErrNotInMatch):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotInMatch, "Not in match")
	case errors.Is(err, ErrMatchFull):
		httperrors.RespondConflict(w, httperrors.ErrCodeMatchFull, "match full")
	default:
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("unexpected arena error")
		httperrors.RespondInternalError(w, "internal error")
	}
}
