package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upaleague/ranking-engine/handlers"
)

// SetupRoutes mounts every API endpoint on the router.
func SetupRoutes(
	router *chi.Mux,
	teamHandler *handlers.TeamHandler,
	playerHandler *handlers.PlayerHandler,
	matchHandler *handlers.MatchHandler,
	tournamentHandler *handlers.TournamentHandler,
	bracketHandler *handlers.BracketHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/teams", func(r chi.Router) {
		r.Post("/", teamHandler.CreateTeam)
		r.Get("/", teamHandler.ListTeams)
		r.Get("/{teamID}", teamHandler.GetTeam)
		r.Delete("/{teamID}", teamHandler.DeleteTeam)
		r.Post("/{teamID}/retire", teamHandler.RetireTeam)
		r.Post("/{teamID}/logo", teamHandler.UploadLogo)
		r.Get("/{teamID}/players", teamHandler.ListRoster)
		r.Get("/{teamID}/rank", leaderboardHandler.TeamRank)
		r.Get("/{teamID}/ledger", leaderboardHandler.TeamLedger)
	})

	router.Route("/players", func(r chi.Router) {
		r.Post("/", playerHandler.CreatePlayer)
		r.Get("/", playerHandler.ListPlayers)
		r.Get("/{playerID}", playerHandler.GetPlayer)
		r.Put("/{playerID}/team", playerHandler.AssignToTeam)
		r.Put("/{playerID}/performance", playerHandler.SetPerformanceScore)
		r.Get("/{playerID}/classification", playerHandler.GetClassification)
		r.Get("/{playerID}/ledger", playerHandler.GetLedgerHistory)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Post("/", matchHandler.SubmitMatch)
		r.Get("/{matchID}", matchHandler.GetMatch)
		r.Put("/{matchID}/result", matchHandler.ReportResult)
		r.Put("/{matchID}/correction", matchHandler.CorrectMatch)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Post("/", tournamentHandler.CreateTournament)
		r.Get("/", tournamentHandler.ListTournaments)
		r.Get("/{tournamentID}", tournamentHandler.GetTournament)
		r.Post("/{tournamentID}/open-group-play", tournamentHandler.OpenGroupPlay)
		r.Post("/{tournamentID}/groups", tournamentHandler.CreateGroup)
		r.Get("/{tournamentID}/groups", tournamentHandler.ListGroups)
		r.Get("/{tournamentID}/matches", tournamentHandler.ListMatches)
		r.Post("/{tournamentID}/roster", tournamentHandler.AddRosterEntry)
		r.Post("/{tournamentID}/mvp", tournamentHandler.NameMVP)

		r.Post("/{tournamentID}/bracket/seed", bracketHandler.SeedBracket)
		r.Post("/{tournamentID}/bracket/matches", bracketHandler.GenerateMatches)
		r.Get("/{tournamentID}/bracket/seeds", bracketHandler.GetSeeds)
	})

	router.Route("/groups", func(r chi.Router) {
		r.Post("/{groupID}/teams", tournamentHandler.AddTeamToGroup)
		r.Get("/{groupID}/standings", tournamentHandler.GetGroupStandings)
	})

	router.Get("/leaderboard", leaderboardHandler.Top)

	router.Route("/admin", func(r chi.Router) {
		r.Post("/decay-sweep", adminHandler.RunDecaySweep)
		r.Post("/reclassify-salaries", adminHandler.ReclassifySalaries)
		r.Post("/recompute-ranks", adminHandler.RecomputeRanks)
		r.Post("/normalize-ratings", adminHandler.NormalizeRatings)
		r.Post("/rebuild-balance", adminHandler.RebuildBalance)
		r.Get("/salary-tiers", adminHandler.ListSalaryTiers)
		r.Put("/salary-tiers", adminHandler.ReplaceSalaryTiers)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.Subscribe)
}
