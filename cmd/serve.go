package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
	"github.com/sells-group/clinic-pipeline/internal/quality"
	"github.com/sells-group/clinic-pipeline/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciled dataset, report, and run history over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// clinicDetail is one clinic with the provenance of its imputable fields.
type clinicDetail struct {
	Clinic      *model.Clinic               `json:"clinic"`
	FieldStatus map[string]string           `json:"field_status"`
	Provenance  map[string]provenance.Entry `json:"provenance,omitempty"`
}

// buildRouter wires the read-only API over st.
func buildRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/report", func(w http.ResponseWriter, req *http.Request) {
			ds, ledger, err := loadState(req.Context(), st)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, quality.Build(ds, ledger, nil))
		})

		r.Get("/clinics", func(w http.ResponseWriter, req *http.Request) {
			ds, err := st.LoadDataset(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			clinics := ds.Clinics
			if req.URL.Query().Get("active_only") == "true" {
				clinics = ds.Active()
			}
			if clinics == nil {
				clinics = []*model.Clinic{}
			}
			writeJSON(w, http.StatusOK, clinics)
		})

		r.Get("/clinics/{id}", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, eris.New("clinic id must be an integer"))
				return
			}
			ds, ledger, err := loadState(req.Context(), st)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			c, ok := ds.ByID()[id]
			if !ok {
				writeError(w, http.StatusNotFound, eris.Errorf("clinic %d not found", id))
				return
			}
			writeJSON(w, http.StatusOK, clinicDetail{
				Clinic:      c,
				FieldStatus: quality.FieldStatus(c, ledger),
				Provenance:  ledger.ForClinic(id),
			})
		})

		r.Get("/provenance", func(w http.ResponseWriter, req *http.Request) {
			entries, err := st.LoadProvenance(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if entries == nil {
				entries = []provenance.Entry{}
			}
			writeJSON(w, http.StatusOK, entries)
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			filter := store.RunFilter{Status: model.RunStatus(q.Get("status"))}
			if v := q.Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					writeError(w, http.StatusBadRequest, eris.New("limit must be a non-negative integer"))
					return
				}
				filter.Limit = n
			}
			runs, err := st.ListRuns(req.Context(), filter)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if runs == nil {
				runs = []model.Run{}
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
			if errors.Is(err, store.ErrRunNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("serve: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
