package handlers

import (
	"net/http"
	"strconv"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
	ledgerService      services.LedgerService
}

func NewLeaderboardHandler(lb services.LeaderboardService, ls services.LedgerService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: lb,
		ledgerService:      ls,
	}
}

func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 25)
	offset := queryInt(r, "offset", 0)

	entries, err := h.leaderboardService.Top(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeaderboardHandler) TeamRank(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rank, err := h.leaderboardService.TeamRank(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team_id": teamID, "rank": rank}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeaderboardHandler) TeamLedger(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.ledgerService.History(r.Context(), models.TeamSubject(teamID))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
