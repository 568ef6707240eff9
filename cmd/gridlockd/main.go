package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridlock-dev/gridlock/internal/api"
	"github.com/gridlock-dev/gridlock/internal/config"
	"github.com/gridlock-dev/gridlock/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewServer(db, log, cfg.SessionTTL).Routes(),
	}

	// Expired sessions are dropped lazily on access; this sweep keeps the
	// table from growing between accesses.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := db.PurgeExpiredSessions(time.Now().UTC())
				if err != nil {
					log.WithError(err).Warn("purge sessions")
				} else if n > 0 {
					log.WithField("purged", n).Info("purged expired sessions")
				}
			}
		}
	}()

	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr,
			"db":      cfg.DBPath,
			"version": api.EngineVersion,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
