package api

import (
	"database/sql"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/perutnina/internal/metrics"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/transfer"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, transfers *transfer.Service) http.Handler {
	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	meHandler := &MeHandler{DB: db}
	usersHandler := &UsersHandler{DB: db}
	fowlsHandler := &FowlsHandler{DB: db}
	recordsHandler := &RecordsHandler{DB: db}
	transfersHandler := &TransfersHandler{DB: db, Service: transfers}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(LoggingMiddleware)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/api/auth/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret, db))

		r.Post("/api/auth/logout", authHandler.Logout)
		r.Put("/api/auth/password", authHandler.ChangePassword)

		r.Put("/api/me/public-key", meHandler.SetPublicKey)
		r.Post("/api/me/push-tokens", meHandler.AddPushToken)
		r.Delete("/api/me/push-tokens/{token}", meHandler.RemovePushToken)

		r.Route("/api/users", func(r chi.Router) {
			r.Use(RequireRole(model.RoleAdmin))
			r.Get("/", usersHandler.List)
			r.Post("/", usersHandler.Create)
			r.Put("/{id}", usersHandler.Update)
			r.Delete("/{id}", usersHandler.Delete)
		})

		r.Route("/api/fowls", func(r chi.Router) {
			r.Get("/", fowlsHandler.List)
			r.Post("/", fowlsHandler.Create)
			r.Get("/{id}", fowlsHandler.Get)
			r.Put("/{id}/image", fowlsHandler.UploadImage)
			r.Get("/{id}/image", fowlsHandler.GetImage)
			r.Get("/{id}/tree", fowlsHandler.Tree)
			r.Get("/{id}/transfers", transfersHandler.ListForFowl)
			r.Get("/{id}/vaccinations", recordsHandler.ListVaccinations)
			r.Post("/{id}/vaccinations", recordsHandler.CreateVaccination)
		})
		r.Post("/api/vaccinations/{id}/complete", recordsHandler.CompleteVaccination)

		r.Post("/api/breeding/records", recordsHandler.CreateBreedingRecord)
		r.Get("/api/breeding/summary", recordsHandler.BreedingSummary)

		r.Route("/api/transfers", func(r chi.Router) {
			r.Post("/", transfersHandler.Create)
			r.Get("/", transfersHandler.List)
			r.Get("/{id}", transfersHandler.Get)
			r.Put("/{id}/proof", transfersHandler.AttachProof)
		})
	})

	r.With(CallableAuthMiddleware(jwtSecret, db)).
		Post("/api/callable/verifyTransfer", transfersHandler.Verify)

	return r
}
