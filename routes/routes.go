package routes

import (
	"log/slog"
	"net/http"

	_ "github.com/Dosada05/bracket-sync/docs" // swagger spec
	"github.com/Dosada05/bracket-sync/handlers"
	"github.com/Dosada05/bracket-sync/middleware"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Auth           middleware.SessionResolver
	LoginLimiter   *middleware.IPRateLimiter
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	authHandler *handlers.AuthHandler,
	competitionHandler *handlers.CompetitionHandler,
	roundHandler *handlers.RoundHandler,
	pairingHandler *handlers.PairingHandler,
	swapHandler *handlers.SwapHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	authenticate := middleware.Authenticate(opts.Auth, opts.Logger)
	absolute := middleware.RequireRole(opts.Auth, models.RoleAbsolute)

	router.Route("/auth", func(r chi.Router) {
		// Публичный маршрут входа с ограничением частоты
		r.With(middleware.RateLimit(opts.LoginLimiter)).Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/ws/competitions/{grade}", webSocketHandler.ServeWs)
		r.Get("/audit/structural", competitionHandler.StructuralLog)

		r.Route("/competitions", func(r chi.Router) {
			r.Get("/", competitionHandler.Overview)
			r.Post("/{grade}/load", competitionHandler.Load)
			r.Post("/save", competitionHandler.Save)
			r.Post("/reload", competitionHandler.Reload)
			r.Get("/current", competitionHandler.Current)
			r.Post("/undo", competitionHandler.Undo)
			r.Post("/redo", competitionHandler.Redo)
		})

		r.Route("/rounds/{round}", func(r chi.Router) {
			r.Patch("/matches/{match}/score", roundHandler.UpdateScore)
			r.Patch("/matches/{match}/schedule", roundHandler.UpdateSchedule)
			r.Get("/delete-preview", roundHandler.DeletePreview)

			// Структурные действия только для роли ABSOLUTE
			r.Group(func(r chi.Router) {
				r.Use(absolute)
				r.Post("/pairing", pairingHandler.Begin)
				r.Post("/best-loser", roundHandler.CreateBestLoser)
				r.Post("/unlock", roundHandler.UnlockRound)
				r.Delete("/", roundHandler.DeleteRound)
				r.Post("/switch-mode", swapHandler.Activate)
			})
		})

		r.Route("/pairing", func(r chi.Router) {
			r.Use(absolute)
			r.Get("/", pairingHandler.State)
			r.Delete("/", pairingHandler.Cancel)
			r.Get("/options", pairingHandler.Options)
			r.Post("/count", pairingHandler.SetCount)
			r.Post("/assign", pairingHandler.Assign)
			r.Post("/submit", pairingHandler.Submit)
			r.Post("/confirm", pairingHandler.Confirm)
			r.Post("/back", pairingHandler.Back)
			r.Post("/commit", pairingHandler.Commit)
		})

		r.Route("/switch-mode", func(r chi.Router) {
			r.Use(absolute)
			r.Get("/", swapHandler.State)
			r.Delete("/", swapHandler.Exit)
			r.Post("/unlock", swapHandler.UnlockTeam)
			r.Post("/relock", swapHandler.RelockTeam)
			r.Post("/swap", swapHandler.Swap)
		})

		r.With(absolute).Post("/tournament/end", roundHandler.EndTournament)
	})
}
