package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	api "github.com/skillramp/skillramp-portal/internal/api/http"
	"github.com/skillramp/skillramp-portal/internal/attempt"
	"github.com/skillramp/skillramp-portal/internal/audit"
	auth "github.com/skillramp/skillramp-portal/internal/auth/middleware"
	"github.com/skillramp/skillramp-portal/internal/config"
	"github.com/skillramp/skillramp-portal/internal/content"
	"github.com/skillramp/skillramp-portal/internal/db"
	"github.com/skillramp/skillramp-portal/internal/grading"
	"github.com/skillramp/skillramp-portal/internal/quiz"
	"github.com/skillramp/skillramp-portal/internal/rbac"
	"github.com/skillramp/skillramp-portal/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := seedAdmin(ctx, dbh, cfg); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	quizStore := quiz.NewSQLStore(dbh, cfg.DBDriver)
	contentStore := content.NewSQLStore(dbh)
	resolver := content.NewResolver(contentStore, quizStore)
	engine := grading.NewEngine()
	sessions := attempt.NewSessionManager(quizStore, engine)
	recorder := audit.NewRecorder(dbh)
	checker := rbac.NewChecker(nil)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	bs, err := storage.NewFSStore(cfg.MediaBasePath)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(dbh, authSvc))

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, true))

		// Learner flow: content browsing and the quiz runner
		pr.With(checker.Require("content:view")).Route("/content", func(cr chi.Router) {
			capi := &api.ContentAPI{Units: contentStore, Resolver: resolver}
			capi.Mount(cr)
		})
		pr.With(checker.Require("quiz:take")).Route("/quiz", func(qr chi.Router) {
			qapi := &api.QuizAPI{Sessions: sessions, Audit: recorder}
			qapi.Mount(qr)
		})
		pr.With(checker.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(quizStore, checker))

		// Instructor flow: authoring and media upload
		pr.With(checker.Require("quiz:author")).Route("/authoring", func(ar chi.Router) {
			api.NewAuthorAPI(quizStore).Mount(ar)
		})
		pr.Route("/assets", func(ar chi.Router) {
			ar.With(checker.Require("content:upload")).
				Post("/content/{unitID}", api.UploadMediaHandler(bs))
			ar.With(checker.Require("content:view")).
				Get("/*", api.ServeMediaHandler(bs))
		})

		// Admin / account management
		pr.With(checker.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(checker.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(checker.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	if cfg.PublicURL != "" {
		log.Printf("public url: %s", cfg.PublicURL)
	}

	log.Printf("portal listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}

// seedAdmin guarantees one admin account exists so a fresh database is usable
// without manual inserts.
func seedAdmin(ctx context.Context, dbh *sql.DB, cfg config.Config) error {
	if cfg.AdminUser == "" || cfg.AdminPassHash == "" {
		return nil
	}
	var id string
	err := dbh.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username=$1`, cfg.AdminUser).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, display_name, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), cfg.AdminUser, cfg.AdminPassHash, "admin", "Administrator",
		time.Now().Unix())
	return err
}
