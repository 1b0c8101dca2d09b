package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for research triggers and run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.ValidateResearch(); err != nil {
			return err
		}

		r, _, ledger := initResearcher(ctx)
		if ledger != nil {
			defer ledger.Close() //nolint:errcheck
		}

		router := chi.NewRouter()
		router.Use(middleware.RequestID)
		router.Use(middleware.Recoverer)
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		router.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			if ledger == nil {
				http.Error(w, `{"error":"run ledger unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			q := req.URL.Query()
			runs, err := ledger.ListRuns(req.Context(), store.RunFilter{
				Status:     model.RunStatus(q.Get("status")),
				Operation:  model.RunOperation(q.Get("operation")),
				Competitor: q.Get("competitor"),
			})
			if err != nil {
				zap.L().Error("runs listing failed", zap.Error(err))
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, runs)
		})

		router.Post("/research", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if body.Name == "" {
				http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
				return
			}

			// Research runs asynchronously against the server context so
			// it survives the request but stops on shutdown.
			go func() {
				path, err := r.Research(ctx, body.Name, model.Filename(body.Name))
				if err != nil {
					zap.L().Error("triggered research failed",
						zap.String("competitor", body.Name),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("triggered research complete",
					zap.String("competitor", body.Name),
					zap.String("path", path),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":     "accepted",
				"competitor": body.Name,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveHTTP(ctx, srv)
	},
}

// shutdownGrace bounds in-flight request draining after a signal.
const shutdownGrace = 10 * time.Second

// serveHTTP runs srv until ctx is cancelled, then drains in-flight
// requests on a fresh timeout context; the signal context is already
// cancelled at that point and would abort the drain immediately.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			zap.L().Error("server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
