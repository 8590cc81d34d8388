package handlers

import (
	"errors"
	"net/http"

	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/services"
)

var errSubjectType = errors.New("subject type must be \"team\" or \"player\"")

// AdminHandler exposes the maintenance operations the scheduler also runs:
// decay sweeps, salary reclassification, rank recomputes and balance
// repairs. These endpoints exist so operators can trigger a run on demand.
type AdminHandler struct {
	ledgerService      services.LedgerService
	salaryService      services.SalaryService
	leaderboardService services.LeaderboardService
	ratingService      services.RatingService
}

func NewAdminHandler(
	ls services.LedgerService,
	ss services.SalaryService,
	lb services.LeaderboardService,
	rs services.RatingService,
) *AdminHandler {
	return &AdminHandler{
		ledgerService:      ls,
		salaryService:      ss,
		leaderboardService: lb,
		ratingService:      rs,
	}
}

func (h *AdminHandler) RunDecaySweep(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledgerService.ApplyDecay(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"scanned": summary.Scanned,
		"decayed": summary.Decayed,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ReclassifySalaries(w http.ResponseWriter, r *http.Request) {
	updated, err := h.salaryService.ReclassifyAll(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"updated": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) RecomputeRanks(w http.ResponseWriter, r *http.Request) {
	if err := h.leaderboardService.RecomputeGlobalRanks(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) NormalizeRatings(w http.ResponseWriter, r *http.Request) {
	if err := h.ratingService.NormalizeAll(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) RebuildBalance(w http.ResponseWriter, r *http.Request) {
	var input models.SubjectRef
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Type != models.SubjectTeam && input.Type != models.SubjectPlayer {
		badRequestResponse(w, r, errSubjectType)
		return
	}

	balance, err := h.ledgerService.RebuildBalance(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"subject": input, "balance": balance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListSalaryTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.salaryService.Tiers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tiers": tiers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ReplaceSalaryTiers(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Tiers []*models.SalaryTier `json:"tiers"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.salaryService.ReplaceTiers(r.Context(), input.Tiers); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	tiers, err := h.salaryService.Tiers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tiers": tiers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
