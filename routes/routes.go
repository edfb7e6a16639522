package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Maldini80/torneos-core/handlers"
	"github.com/Maldini80/torneos-core/middleware"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Match      *handlers.MatchHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(auth *middleware.Authenticator, h Handlers) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{shortID}", h.Tournament.GetByShortIDHandler)
		r.Get("/{shortID}/standings", h.Tournament.StandingsHandler)

		// Маршруты бота: регистрация команд и отчёты капитанов
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(middleware.RoleBot, middleware.RoleAdmin))

			r.Post("/{shortID}/teams", h.Team.RegisterHandler)
			r.Post("/{shortID}/matches/{matchID}/report", h.Match.SubmitReportHandler)
		})

		// Административные маршруты
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(middleware.RoleAdmin))

			r.Post("/", h.Tournament.CreateHandler)
			r.Post("/{shortID}/draw", h.Tournament.DrawHandler)
			r.Post("/{shortID}/undo-draw", h.Tournament.UndoDrawHandler)
			r.Post("/{shortID}/cancel", h.Tournament.CancelHandler)
			r.Delete("/{shortID}", h.Tournament.DeleteHandler)

			r.Post("/{shortID}/teams/{captainID}/approve", h.Team.ApproveHandler)
			r.Post("/{shortID}/teams/{captainID}/reject", h.Team.RejectHandler)
			r.Post("/{shortID}/teams/{captainID}/kick", h.Team.KickHandler)
			r.Post("/{shortID}/teams/{captainID}/promote", h.Team.PromoteHandler)

			r.Post("/{shortID}/matches/{matchID}/force-result", h.Match.ForceResultHandler)
		})
	})

	router.Get("/ws/tournaments/{shortID}", h.WebSocket.ServeWs)

	return router
}
