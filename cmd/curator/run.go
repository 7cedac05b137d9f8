package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/curator/internal/app"
	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, score, classify and select today's articles",
	Long:  "Runs one pipeline pass and writes review_<date>.json and selection_<date>.json to the output directory.",
	RunE:  runPipeline,
}

var (
	runRules       string
	runPersonalize bool
	runServe       bool
)

func init() {
	runCmd.Flags().StringVarP(&runRules, "rules", "r", "", "Path to rules yaml (overrides RULES_PATH)")
	runCmd.Flags().BoolVarP(&runPersonalize, "personalize", "p", false, "Rank with the learned preference profile (overrides PERSONALIZE)")
	runCmd.Flags().BoolVar(&runServe, "serve", false, "Keep the monitoring server running after the pass")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if runRules != "" {
		cfg.RulesPath = runRules
	}
	if cmd.Flags().Changed("personalize") {
		cfg.Personalize = runPersonalize
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	var srv *http.Server
	if cfg.EnableHTTPMonitoring {
		srv = startMonitoringServer(cfg.MonitoringPort, m, log)
		defer shutdownServer(srv, log)
	}

	p, cleanup, err := app.Build(ctx, cfg, rules, m, log)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}
	printResult(cmd, res)

	if srv != nil && runServe {
		log.Info("pass complete, serving metrics until interrupted")
		<-ctx.Done()
	}
	return nil
}

func printResult(cmd *cobra.Command, res app.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d fetched, %d candidates, %d selected\n",
		res.RunID, res.Fetched, len(res.Candidates), res.Selection.Total())
	for _, it := range res.Selection.All() {
		fmt.Fprintf(out, "  [%s] %.2f %s (%s)\n", it.Section, it.Score, it.Title, it.Source)
	}
	if !res.Sentiment.Balanced() {
		fmt.Fprintln(out, "Sentiment mix is outside the target band")
	}
	for _, p := range res.Validation.Problems {
		fmt.Fprintf(out, "Warning: %s\n", p)
	}
	if len(res.Recommendations) > 0 {
		fmt.Fprintln(out, "Recommended:")
		for _, it := range res.Recommendations {
			fmt.Fprintf(out, "  %3d%% %s\n", it.Likelihood, it.Title)
		}
	}
	if res.SelectionPath != "" {
		fmt.Fprintf(out, "Wrote %s and %s\n", res.ReviewPath, res.SelectionPath)
	}
}

func startMonitoringServer(port string, m *metrics.Metrics, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(m))
	mux.HandleFunc("/metrics", metricsHandler(m))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("starting monitoring server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("monitoring server error", "error", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("monitoring server shutdown failed", "error", err)
	}
}

func healthHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if !m.Healthy() {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":      status,
			"last_run":    stats["last_run_time"],
			"last_run_id": stats["last_run_id"],
			"last_error":  stats["last_error"],
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func metricsHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.GetStats())
	}
}
