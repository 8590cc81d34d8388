package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/upaleague/ranking-engine/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

func (h *BracketHandler) SeedBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	seeds, err := h.bracketService.SeedBracket(r.Context(), tournamentID)
	if err != nil {
		// Re-seeding is idempotent: hand back the frozen seed list.
		if errors.Is(err, services.ErrAlreadySeeded) {
			if werr := writeJSON(w, http.StatusOK, jsonResponse{"seeds": seeds}, nil); werr != nil {
				serverErrorResponse(w, r, werr)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"seeds": seeds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GenerateMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		FirstMatchTime  time.Time `json:"first_match_time"`
		MatchGapMinutes int       `json:"match_gap_minutes"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.FirstMatchTime.IsZero() {
		input.FirstMatchTime = time.Now().Add(24 * time.Hour)
	}
	if input.MatchGapMinutes <= 0 {
		input.MatchGapMinutes = 60
	}

	gap := time.Duration(input.MatchGapMinutes) * time.Minute
	matches, err := h.bracketService.GenerateMatches(r.Context(), tournamentID, input.FirstMatchTime, gap)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyGenerated) {
			if werr := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); werr != nil {
				serverErrorResponse(w, r, werr)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetSeeds(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	seeds, err := h.bracketService.Seeds(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"seeds": seeds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
