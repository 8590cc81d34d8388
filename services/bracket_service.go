package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/upaleague/ranking-engine/brackets"
	"github.com/upaleague/ranking-engine/models"
	"github.com/upaleague/ranking-engine/repositories"
)

// BracketService closes the group stage into a single-elimination bracket:
// it seeds qualifiers, generates the full match tree, and advances winners
// until a champion is crowned.
type BracketService interface {
	// SeedBracket freezes the group tables, orders qualifiers by snake
	// interleave and stores the seed list, moving the tournament from
	// group play into the bracket phase. Seeding twice returns the
	// original seed list together with ErrAlreadySeeded.
	SeedBracket(ctx context.Context, tournamentID string) ([]*models.BracketSeed, error)

	// GenerateMatches materializes every round of the bracket as scheduled
	// matches wired together through next-match pointers. Teams with a
	// first-round bye are placed directly into their second-round slot.
	GenerateMatches(ctx context.Context, tournamentID string, firstMatchTime time.Time, gap time.Duration) ([]*models.Match, error)

	// AdvanceWinner routes a decided match's winner into the next round,
	// or closes the tournament when the final is decided.
	AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, matchID string) error

	// Seeds returns the stored seed list, empty before seeding.
	Seeds(ctx context.Context, tournamentID string) ([]*models.BracketSeed, error)
}

type bracketService struct {
	txRunner    repositories.TxRunner
	seedRepo    repositories.BracketSeedRepository
	matchRepo   repositories.MatchRepository
	tourRepo    repositories.TournamentRepository
	standings   StandingsService
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewBracketService(
	txRunner repositories.TxRunner,
	seedRepo repositories.BracketSeedRepository,
	matchRepo repositories.MatchRepository,
	tourRepo repositories.TournamentRepository,
	standings StandingsService,
	broadcaster Broadcaster,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		txRunner:    txRunner,
		seedRepo:    seedRepo,
		matchRepo:   matchRepo,
		tourRepo:    tourRepo,
		standings:   standings,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *bracketService) SeedBracket(ctx context.Context, tournamentID string) ([]*models.BracketSeed, error) {
	var seeds []*models.BracketSeed
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		exists, err := s.seedRepo.ExistsForTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("check existing seeds: %w", err)
		}
		if exists {
			seeds, err = s.seedRepo.ListByTournament(ctx, exec, tournamentID)
			if err != nil {
				return fmt.Errorf("list existing seeds: %w", err)
			}
			return ErrAlreadySeeded
		}

		qualifiers, err := s.standings.Qualifiers(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if len(qualifiers) < 2 {
			return fmt.Errorf("%w: %d qualifiers", ErrInsufficientTeams, len(qualifiers))
		}

		// The status guard doubles as a concurrency barrier: only one
		// transaction can win the group_play -> bracket transition.
		err = s.tourRepo.UpdateStatusFrom(ctx, exec, tournamentID, models.TournamentGroupPlay, models.TournamentBracket)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			if errors.Is(err, repositories.ErrTournamentStatusInvalid) {
				return fmt.Errorf("%w: tournament is not in group play", ErrInvalidState)
			}
			return fmt.Errorf("transition tournament to bracket: %w", err)
		}

		ordered := brackets.SnakeSeeds(qualifiers)
		seeds = make([]*models.BracketSeed, len(ordered))
		for i, q := range ordered {
			seeds[i] = &models.BracketSeed{
				ID:            uuid.NewString(),
				TournamentID:  tournamentID,
				Seed:          i + 1,
				TeamID:        q.TeamID,
				GroupID:       q.GroupID,
				GroupPosition: q.GroupPosition,
			}
		}
		if err := s.seedRepo.BatchCreate(ctx, exec, seeds); err != nil {
			return fmt.Errorf("store seeds: %w", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAlreadySeeded) {
		return nil, err
	}

	if err == nil {
		s.logger.Info("bracket seeded",
			slog.String("tournament_id", tournamentID),
			slog.Int("seeds", len(seeds)),
		)
		s.broadcaster.BroadcastToRoom(tournamentID, "bracket_seeded", seeds)
	}
	return seeds, err
}

func (s *bracketService) GenerateMatches(ctx context.Context, tournamentID string, firstMatchTime time.Time, gap time.Duration) ([]*models.Match, error) {
	var generated []*models.Match
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tourRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("load tournament: %w", err)
		}
		if tournament.Status != models.TournamentBracket {
			return fmt.Errorf("%w: tournament is not in the bracket phase", ErrInvalidState)
		}

		existing, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("list existing matches: %w", err)
		}
		for _, match := range existing {
			if match.Round != nil {
				generated, err = s.bracketMatches(existing)
				if err != nil {
					return err
				}
				return ErrAlreadyGenerated
			}
		}

		seeds, err := s.seedRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("list seeds: %w", err)
		}
		if len(seeds) < 2 {
			return fmt.Errorf("%w: bracket not seeded", ErrInvalidState)
		}

		generated, err = s.createBracketTree(ctx, exec, tournamentID, seeds, firstMatchTime, gap)
		return err
	})
	if err != nil && !errors.Is(err, ErrAlreadyGenerated) {
		return nil, err
	}

	if err == nil {
		s.logger.Info("bracket matches generated",
			slog.String("tournament_id", tournamentID),
			slog.Int("matches", len(generated)),
		)
		s.broadcaster.BroadcastToRoom(tournamentID, "bracket_generated", generated)
	}
	return generated, err
}

// bracketMatches filters a tournament's match list down to bracket rounds.
func (s *bracketService) bracketMatches(matches []*models.Match) ([]*models.Match, error) {
	out := make([]*models.Match, 0, len(matches))
	for _, match := range matches {
		if match.Round != nil {
			out = append(out, match)
		}
	}
	return out, nil
}

// createBracketTree builds every round back to front so each match knows the
// match its winner feeds into before it is stored.
func (s *bracketService) createBracketTree(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, seeds []*models.BracketSeed, firstMatchTime time.Time, gap time.Duration) ([]*models.Match, error) {
	numTeams := len(seeds)
	totalRounds := brackets.NumRounds(numTeams)
	size := brackets.BracketSize(numTeams)

	teamBySeed := make(map[int]string, numTeams)
	for _, seed := range seeds {
		teamBySeed[seed.Seed] = seed.TeamID
	}

	// nextIDs[round][order] is the stored ID of that round's match.
	nextIDs := make(map[int]map[int]string)
	var created []*models.Match

	for round := totalRounds; round >= 1; round-- {
		matchesInRound := size >> round // size / 2^round
		if matchesInRound < 1 {
			matchesInRound = 1
		}
		nextIDs[round] = make(map[int]string, matchesInRound)

		// Matches run back to back: each slot starts one gap after the
		// previous one, and a round begins only after the prior round's
		// last slot.
		slotsBefore := size - (size >> (round - 1))

		for order := 1; order <= matchesInRound; order++ {
			r := round
			o := order
			match := &models.Match{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				Stage:        stageForRound(r, totalRounds),
				Round:        &r,
				OrderInRound: &o,
				Status:       models.MatchStatusScheduled,
				MatchTime:    firstMatchTime.Add(time.Duration(slotsBefore+order-1) * gap),
			}
			if round < totalRounds {
				nextOrder, slot := brackets.NextSlot(order)
				nextID := nextIDs[round+1][nextOrder]
				match.NextMatchID = &nextID
				match.NextSlot = &slot
			}
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return nil, fmt.Errorf("create round %d match %d: %w", round, order, err)
			}
			nextIDs[round][order] = match.ID
			created = append(created, match)
		}
	}

	// Place first-round teams, routing byes straight into round two.
	pairings, err := brackets.FirstRoundPairings(numTeams)
	if err != nil {
		return nil, err
	}
	for _, pairing := range pairings {
		matchID := nextIDs[1][pairing.OrderInRound]
		if pairing.Bye() {
			nextOrder, slot := brackets.NextSlot(pairing.OrderInRound)
			byeTarget := nextIDs[2][nextOrder]
			if err := s.matchRepo.SetTeamSlot(ctx, exec, byeTarget, slot, teamBySeed[pairing.SeedA]); err != nil {
				return nil, fmt.Errorf("place bye seed %d: %w", pairing.SeedA, err)
			}
			// The unused first-round slot stays empty and is canceled.
			if err := s.cancelMatch(ctx, exec, matchID); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.matchRepo.SetTeamSlot(ctx, exec, matchID, 1, teamBySeed[pairing.SeedA]); err != nil {
			return nil, fmt.Errorf("place seed %d: %w", pairing.SeedA, err)
		}
		if err := s.matchRepo.SetTeamSlot(ctx, exec, matchID, 2, teamBySeed[pairing.SeedB]); err != nil {
			return nil, fmt.Errorf("place seed %d: %w", pairing.SeedB, err)
		}
	}

	// Re-read so the returned matches carry the team placements.
	for i, match := range created {
		fresh, err := s.matchRepo.GetByID(ctx, exec, match.ID)
		if err != nil {
			return nil, fmt.Errorf("reload match %s: %w", match.ID, err)
		}
		created[i] = fresh
	}
	return created, nil
}

func (s *bracketService) cancelMatch(ctx context.Context, exec repositories.SQLExecutor, matchID string) error {
	if err := s.matchRepo.Cancel(ctx, exec, matchID); err != nil {
		return fmt.Errorf("cancel bye match %s: %w", matchID, err)
	}
	return nil
}

func (s *bracketService) AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, matchID string) error {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("load match %s: %w", matchID, err)
	}
	if match.Status != models.MatchStatusCompleted || match.WinnerID == nil {
		return ErrMatchNotDecided
	}

	if match.NextMatchID != nil && match.NextSlot != nil {
		if err := s.matchRepo.SetTeamSlot(ctx, exec, *match.NextMatchID, *match.NextSlot, *match.WinnerID); err != nil {
			return fmt.Errorf("advance winner into match %s: %w", *match.NextMatchID, err)
		}
		s.logger.Debug("winner advanced",
			slog.String("match_id", matchID),
			slog.String("winner_id", *match.WinnerID),
			slog.String("next_match_id", *match.NextMatchID),
			slog.Int("slot", *match.NextSlot),
		)
		return nil
	}

	// No next match: this was the final.
	loser := match.LoserID()
	if loser == nil {
		return ErrMatchNotDecided
	}
	if err := s.tourRepo.SetFinalists(ctx, exec, match.TournamentID, *match.WinnerID, *loser); err != nil {
		return fmt.Errorf("record finalists: %w", err)
	}

	s.logger.Info("tournament completed",
		slog.String("tournament_id", match.TournamentID),
		slog.String("champion_id", *match.WinnerID),
		slog.String("runner_up_id", *loser),
	)
	return nil
}

func (s *bracketService) Seeds(ctx context.Context, tournamentID string) ([]*models.BracketSeed, error) {
	seeds, err := s.seedRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}
	if seeds == nil {
		seeds = []*models.BracketSeed{}
	}
	return seeds, nil
}

// stageForRound labels a bracket round. The last round is the final, the
// one before it the semifinal.
func stageForRound(round, totalRounds int) models.Stage {
	switch {
	case round == totalRounds:
		return models.StageFinals
	case round == totalRounds-1:
		return models.StageSemiFinals
	default:
		return models.Stage(fmt.Sprintf("Round %d", round))
	}
}
