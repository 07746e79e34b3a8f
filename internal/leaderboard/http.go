package leaderboard

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/mathpets/battle-arena/pkg/http/errors"
)

// HTTPHandler serves GET /v1/leaderboard.
type HTTPHandler struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandler creates the leaderboard HTTP handler.
func NewHTTPHandler(service *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet returns the top players by battle earnings.
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Top(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch leaderboard")
		httperrors.RespondInternalError(w, "internal error")
		return
	}

	top := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		top[i] = map[string]interface{}{
			"rank":      e.Rank,
			"userId":    e.UserID.String(),
			"username":  e.Username,
			"name":      e.DisplayName,
			"petAvatar": e.Avatar,
			"wins":      e.Wins,
			"losses":    e.Losses,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":  true,
		"top": top,
	})
}
