package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/database"
	"github.com/arnavshah/duty-roster-go/pkg/handlers"
	"github.com/arnavshah/duty-roster-go/pkg/logger"
)

var r http.Handler

func init() {
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load("")
	if err != nil {
		r = unavailable(err)
		return
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		log = zap.NewNop()
	}

	db, err := database.InitDB(cfg.Database, log)
	if err != nil {
		log.Error("database unavailable", zap.Error(err))
		r = unavailable(err)
		return
	}

	// no /metrics endpoint on serverless
	h, err := handlers.New(cfg, db, log, nil)
	if err != nil {
		r = unavailable(err)
		return
	}
	if err := h.Auth.EnsureAdminExists(context.Background(), db, log); err != nil {
		log.Warn("could not ensure admin", zap.Error(err))
	}

	r = handlers.NewRouter(h)
}

func unavailable(_ error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
