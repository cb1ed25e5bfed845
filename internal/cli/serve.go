package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nonibytes/textindex/textindex"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search over HTTP",
		Long: `Serve the index over HTTP:

  GET  /search?q=...&kind=&limit=&startswith=&any=&stopwords=&order_by=
  POST /documents?kind=   (JSON object lines)
  GET  /count
  GET  /metrics
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			server := &http.Server{
				Addr:              addr,
				Handler:           newHandler(s),
				ReadHeaderTimeout: 10 * time.Second,
			}
			var metricsServer *http.Server
			if s.cfg.Metrics.Enabled && s.cfg.Metrics.Addr != addr {
				metricsServer = &http.Server{Addr: s.cfg.Metrics.Addr, Handler: s.metrics.Handler()}
				go func() {
					if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						s.logger.Error("metrics_server_error", "error", err)
					}
				}()
				s.logger.Info("metrics_listening", "addr", metricsServer.Addr)
			}

			go func() {
				<-ctx.Done()
				s.logger.Info("shutdown_signal_received")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					s.logger.Error("server_shutdown_error", "error", err)
				}
				if metricsServer != nil {
					_ = metricsServer.Shutdown(shutdownCtx)
				}
			}()

			s.logger.Info("server_listening", "addr", addr, "index", s.index.ID(), "backend", string(s.store.Backend()))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			s.logger.Info("server_stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

type handler struct {
	s *session
}

func newHandler(s *session) http.Handler {
	h := &handler{s: s}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", h.search)
	mux.HandleFunc("POST /documents", h.addDocuments)
	mux.HandleFunc("GET /count", h.count)
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := params.Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	schema, err := h.s.schema(params.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	so := h.s.cfg.SearchOptions()
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		so.Limit = n
	}
	for name, dst := range map[string]*bool{
		"startswith": &so.UseStartswith,
		"stemming":   &so.UseStemming,
		"stopwords":  &so.MatchStopwords,
	} {
		if v := params.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, name+" must be a boolean")
				return
			}
			*dst = b
		}
	}
	if v := params.Get("any"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "any must be a boolean")
			return
		}
		so.MatchAll = !b
	}
	so.OrderBy = params.Get("order_by")

	start := time.Now()
	res, err := h.s.index.Search(r.Context(), q, schema, textindex.WithSearchOptions(so))
	if err != nil {
		h.fail(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, newSearchResponse(q, schema, res, time.Since(start)))
}

func (h *handler) addDocuments(w http.ResponseWriter, r *http.Request) {
	schema, err := h.s.schema(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := readJSONLines(r.Body, schema)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.s.index.Add(r.Context(), docs...)
	if err != nil {
		h.fail(w, "add", err)
		return
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids, "created": len(created)})
}

func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.s.index.DocumentCount(r.Context())
	if err != nil {
		h.fail(w, "count", err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Index: h.s.index.ID(), Documents: n})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.s.index.Stats(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "up"})
}

func (h *handler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.s.logger.Error("request_failed", "op", op, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var e *textindex.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case textindex.ErrQueryParse, textindex.ErrUnknownField, textindex.ErrTypeMismatch, textindex.ErrIntegrity:
		return http.StatusBadRequest
	case textindex.ErrNotFound:
		return http.StatusNotFound
	case textindex.ErrFeature:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
