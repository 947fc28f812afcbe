package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/api"
	"github.com/user/hero-dispatch/internal/game"
	"github.com/user/hero-dispatch/internal/history"
	"github.com/user/hero-dispatch/internal/transport/ws"
	"github.com/user/hero-dispatch/internal/whatsapp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "./config/config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// The configured level is unknown until the config loads
		fallback := setupLogger("info")
		fallback.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := setupLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	gameManager := game.NewGameManager(cfg)
	gameManager.SetLogger(logger)

	restored, err := gameManager.LoadSnapshot()
	if err != nil && !errors.Is(err, game.ErrNoStorage) {
		logger.Fatal("Failed to restore game state", zap.Error(err))
	}

	if err := loadRoster(gameManager, cfg, logger); err != nil {
		logger.Fatal("Failed to load roster", zap.Error(err))
	}
	logger.Info("Starting session", zap.Bool("restored", restored))
	gameManager.StartSession(time.Now())

	var opts []api.Option

	if cfg.Storage.HistoryPath != "" {
		ledger, err := history.Open(cfg.Storage.HistoryPath, logger)
		if err != nil {
			logger.Fatal("Failed to open history ledger", zap.Error(err))
		}
		defer ledger.Close()
		gameManager.AddEventSink(ledger)
		opts = append(opts, api.WithHistory(ledger))
	}

	hub := ws.NewHub(logger, func() interface{} { return gameManager.Summary() })
	gameManager.AddEventSink(hub)
	opts = append(opts, api.WithFeed(hub.Handler()))

	router := api.NewServer(gameManager, logger, opts...).Router()

	if cfg.WhatsApp.Enabled {
		clientManager := whatsapp.NewClientManager(gameManager, cfg, logger)
		defer clientManager.DisconnectAll()

		if cfg.WhatsApp.DispatcherPhone != "" {
			notifier := whatsapp.NewNotifier(clientManager, cfg.WhatsApp.BotPhone, cfg.WhatsApp.DispatcherPhone, logger)
			defer notifier.Close()
			gameManager.AddEventSink(notifier)
		}

		qrManager := whatsapp.NewQRCodeManager(clientManager, cfg, logger)
		sessionManager := whatsapp.NewSessionManager(cfg.WhatsApp.StoreDir, logger)
		router.Route("/whatsapp", func(r chi.Router) {
			mountWhatsApp(r, clientManager, qrManager, sessionManager, cfg, logger)
		})
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	clock := game.NewGameClock(gameManager, cfg.Server.TickInterval(), cfg.Storage.SnapshotInterval())
	clock.Start()

	waitForShutdown(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	clock.Stop()
	if err := gameManager.SaveSnapshot(); err != nil && !errors.Is(err, game.ErrNoStorage) {
		logger.Error("Failed to save final snapshot", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func setupLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, _ := config.Build()
	return logger
}

// loadRoster reads hero definitions from the data directory, falling back to the built-in roster
func loadRoster(gameManager *game.GameManager, cfg config.Config, logger *zap.Logger) error {
	defs, err := game.NewDataLoader(cfg.Storage.DataDir).LoadRoster()
	if err != nil {
		logger.Warn("Using built-in roster", zap.String("data_dir", cfg.Storage.DataDir), zap.Error(err))
		defs = game.DefaultRoster()
	}

	heroes, err := game.BuildRoster(defs, cfg.Game)
	if err != nil {
		return err
	}
	gameManager.LoadRoster(heroes)
	return nil
}

func mountWhatsApp(r chi.Router, clientManager *whatsapp.ClientManager, qrManager *whatsapp.QRCodeManager, sessionManager *whatsapp.SessionManager, cfg config.Config, logger *zap.Logger) {
	r.Get("/qrcodes/*", func(w http.ResponseWriter, r *http.Request) {
		http.StripPrefix("/whatsapp/qrcodes/", http.FileServer(http.Dir(cfg.WhatsApp.QRCodeDir))).ServeHTTP(w, r)
	})

	r.Post("/qr", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PhoneNumber string `json:"phone_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		qrCode, path, err := qrManager.GenerateQRCode(req.PhoneNumber)
		if errors.Is(err, whatsapp.ErrAlreadyLoggedIn) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			logger.Error("Failed to generate QR code",
				zap.String("phone_number", req.PhoneNumber),
				zap.Error(err))
			http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"qr_code": qrCode,
			"image":   path,
		})
	})

	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := sessionManager.ListSessions()
		if err != nil {
			logger.Error("Failed to list sessions", zap.Error(err))
			http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessions)
	})

	r.Delete("/sessions/{phone_number}/{session_id}", func(w http.ResponseWriter, r *http.Request) {
		phoneNumber := chi.URLParam(r, "phone_number")
		sessionID := chi.URLParam(r, "session_id")

		if err := clientManager.Disconnect(phoneNumber); err != nil {
			logger.Debug("No live client for session", zap.String("phone_number", phoneNumber))
		}

		if err := sessionManager.DeleteSession(phoneNumber, sessionID); err != nil {
			logger.Error("Failed to delete session",
				zap.String("phone_number", phoneNumber),
				zap.String("session_id", sessionID),
				zap.Error(err))
			http.Error(w, "Failed to delete session", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func waitForShutdown(logger *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
}
