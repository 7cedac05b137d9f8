package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/curator/internal/app"
	"github.com/deusflow/curator/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the item cache",
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries",
	RunE:  runCacheSweep,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache entry",
	RunE:  runCacheClear,
}

var cacheCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured cache backend with a write, read and delete",
	RunE:  runCacheCheck,
}

func init() {
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCheckCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheSweep(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	store, closeStore, err := app.NewCacheStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := store.Sweep(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to sweep cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", n)
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	store, closeStore, err := app.NewCacheStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
	return nil
}

func runCacheCheck(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	store, closeStore, err := app.NewCacheStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\n", cfg.CacheBackend)
	return checkStore(cmd.Context(), store, cmd.OutOrStdout())
}

// checkStore round-trips a probe entry through store.
func checkStore(ctx context.Context, store cache.Store, out io.Writer) error {
	key := cache.KeyFor("healthcheck:" + time.Now().UTC().Format(time.RFC3339Nano))
	probe := []byte(`"ok"`)

	if err := store.Set(ctx, key, probe); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	got, ok, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("cache read failed: %w", err)
	}
	if !ok || !bytes.Equal(got, probe) {
		return fmt.Errorf("cache read returned %q, want %q", got, probe)
	}
	if err := store.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	fmt.Fprintln(out, "Cache backend is ready")
	return nil
}
