package main

import (
	"net/http"

	"github.com/joho/godotenv"

	"prospine/server/internal/api"
	"prospine/server/internal/config"
	"prospine/server/internal/database"
	"prospine/server/internal/ledger"
	"prospine/server/internal/migrations"
	"prospine/server/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger()

	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.EnsureAdmin(db, cfg.AdminEmail, cfg.AdminPass)

	reconciler := ledger.NewReconciler(db, logger, cfg.LockTimeout)
	handler := api.New(db, cfg.Secret, logger, reconciler)

	logger.Infof("ProSpine server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
