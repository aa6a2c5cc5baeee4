package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve verification reports and stored documents over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m, err := pipeline.LoadManifest(manifestPath)
		if err != nil {
			return err
		}

		e, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: serveMux(e, m),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("scope", m.Scope))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func serveMux(e *env, m *pipeline.Manifest) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/report", func(w http.ResponseWriter, req *http.Request) {
		report, err := e.Pipeline.Verify(req.Context(), m)
		if err != nil {
			zap.L().Error("serve: verify failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "verification failed"})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/api/documents", func(w http.ResponseWriter, req *http.Request) {
		names, err := e.Docs.ListNames(req.Context(), m.Scope)
		if err != nil {
			zap.L().Error("serve: list documents failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"scope": m.Scope, "names": names})
	})

	r.Get("/api/documents/{name}", func(w http.ResponseWriter, req *http.Request) {
		doc, err := e.Docs.GetLatest(req.Context(), chi.URLParam(req, "name"), m.Scope)
		if err != nil {
			if eris.Is(err, model.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
				return
			}
			zap.L().Error("serve: get document failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "get failed"})
			return
		}
		writeJSON(w, http.StatusOK, doc)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
