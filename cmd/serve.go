package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cumulate/internal/merge"
	"github.com/sells-group/cumulate/internal/model"
	"github.com/sells-group/cumulate/internal/snapshot"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only snapshot API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		mux := buildMux(st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func buildMux(st snapshot.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /seasons/{season}/players", func(w http.ResponseWriter, r *http.Request) {
		season, err := strconv.Atoi(r.PathValue("season"))
		if err != nil {
			http.Error(w, `{"error":"invalid season"}`, http.StatusBadRequest)
			return
		}

		snaps, err := st.Snapshots(r.Context(), season)
		if err != nil {
			zap.L().Error("list snapshots failed", zap.Int("season", season), zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, snaps)
	})

	mux.HandleFunc("GET /players/{name}", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupPlayer(w, r, st)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	mux.HandleFunc("GET /players/{name}/history", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupPlayer(w, r, st)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, merge.Flatten(snap))
	})

	mux.HandleFunc("GET /players/{name}/trend", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := lookupPlayer(w, r, st)
		if !ok {
			return
		}

		ratio, err := merge.TrendRatio(snap.History)
		if err != nil {
			http.Error(w, `{"error":"no history"}`, http.StatusUnprocessableEntity)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"player_name": snap.PlayerName,
			"trend":       ratio,
			"seasons":     len(snap.History),
		})
	})

	return mux
}

func lookupPlayer(w http.ResponseWriter, r *http.Request, st snapshot.Store) (*model.Snapshot, bool) {
	name := r.PathValue("name")

	snap, err := st.LatestSnapshot(r.Context(), name)
	if err != nil {
		zap.L().Error("lookup player failed", zap.String("player", name), zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return nil, false
	}
	if snap == nil {
		http.Error(w, `{"error":"player not found"}`, http.StatusNotFound)
		return nil, false
	}

	return snap, true
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
