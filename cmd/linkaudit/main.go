// Package main provides the linkaudit CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/orneryd/linkaudit/pkg/config"
	"github.com/orneryd/linkaudit/pkg/content"
	"github.com/orneryd/linkaudit/pkg/embed"
	"github.com/orneryd/linkaudit/pkg/ingest"
	"github.com/orneryd/linkaudit/pkg/linkaudit"
	"github.com/orneryd/linkaudit/pkg/report"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	// Local .env keeps API keys out of shell history; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "linkaudit",
		Short: "linkaudit - Internal linking audit for SEO",
		Long: `linkaudit analyzes a site's internal link graph from a crawler CSV export.

It separates mechanical links (navigation, footer, pagination) from
editorial ones, derives graph statistics (orphan pages, hub pages, anchor
repetition), scores anchor quality, and optionally clusters anchors into
semantic themes using a local or hosted embedding model.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linkaudit v%s (%s)\n", version, commit)
		},
	})

	analyzeCmd := &cobra.Command{
		Use:   "analyze <links.csv>",
		Short: "Run a full audit over a link export CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().String("site", "", "Site base URL (default: auto-detect from first record)")
	analyzeCmd.Flags().String("config", "", "Path to YAML configuration file")
	analyzeCmd.Flags().String("content-dir", "", "Local HTML mirror for coherence and gap analysis")
	analyzeCmd.Flags().String("out", "", "Output directory (default: from config)")
	analyzeCmd.Flags().Bool("no-semantic", false, "Skip the embedding-based stages")
	rootCmd.AddCommand(analyzeCmd)

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the embedding cache",
	}
	cacheStatsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show embedding cache statistics",
		RunE:  runCacheStats,
	}
	cacheClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached embedding",
		RunE:  runCacheClear,
	}
	for _, c := range []*cobra.Command{cacheStatsCmd, cacheClearCmd} {
		c.Flags().String("config", "", "Path to YAML configuration file")
		cacheCmd.AddCommand(c)
	}
	rootCmd.AddCommand(cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if site, _ := cmd.Flags().GetString("site"); site != "" {
		cfg.Site.BaseURL = site
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Report.OutputDir = out
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("📁 Loading %s...\n", args[0])
	recs, summary, err := ingest.LoadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("✅ %d records loaded (%s, %q-separated, %d skipped)\n",
		summary.Rows, summary.Encoding, summary.Delimiter, summary.Skipped)
	for _, warning := range summary.Warnings {
		fmt.Printf("⚠️  %s\n", warning)
	}

	opts := []linkaudit.Option{}

	noSemantic, _ := cmd.Flags().GetBool("no-semantic")
	var store *embed.Store
	if !noSemantic && cfg.Embedding.Provider != "none" {
		store, err = openCache(cfg)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
		}
		if store != nil {
			defer store.Close()
			opts = append(opts, linkaudit.WithEncoder(store))
		}
	}

	if dir, _ := cmd.Flags().GetString("content-dir"); dir != "" {
		if cfg.Site.BaseURL == "" {
			return fmt.Errorf("--content-dir requires --site to map mirror files to URLs")
		}
		provider, err := content.LoadMirror(dir, cfg.Site.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to load content mirror: %w", err)
		}
		fmt.Printf("📄 %d pages of content loaded\n", len(provider))
		opts = append(opts, linkaudit.WithContent(provider))
	}

	auditor := linkaudit.New(cfg, opts...)

	fmt.Println("🔍 Analyzing link graph...")
	result, err := auditor.Analyze(ctx, recs)
	if err != nil {
		return err
	}

	stats := result.Graph.Stats
	fmt.Printf("📊 %d pages, %d internal links (%.1f%% editorial), score %.1f/100\n",
		stats.TotalPages, stats.TotalInternalLinks, stats.EditorialRatio, result.Quality.Score)
	if len(result.Graph.OrphanPages) > 0 {
		fmt.Printf("🏝️  %d orphan pages\n", len(result.Graph.OrphanPages))
	}
	if result.Semantic != nil {
		fmt.Printf("🎯 %d semantic themes\n", len(result.Semantic.Themes))
	} else if result.SemanticUnavailable != "" {
		fmt.Printf("⚠️  Semantic analysis skipped: %s\n", result.SemanticUnavailable)
	}

	htmlPath, csvPath, err := report.Save(result, cfg.Report.OutputDir)
	if err != nil {
		return err
	}
	fmt.Printf("📄 Report: %s\n", htmlPath)
	fmt.Printf("📊 Recommendations: %s\n", csvPath)
	return nil
}

// openCache builds the persistent embedding cache over the configured
// provider. A missing model is reported, not fatal.
func openCache(cfg *config.Config) (*embed.Store, error) {
	embedder, err := embed.NewEmbedder(&embed.Config{
		Provider:          cfg.Embedding.Provider,
		APIURL:            cfg.Embedding.APIURL,
		APIPath:           apiPath(cfg.Embedding.Provider),
		APIKey:            cfg.Embedding.APIKey,
		Model:             cfg.Embedding.Model,
		Dimensions:        cfg.Embedding.Dimensions,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		if errors.Is(err, embed.ErrUnavailable) {
			return nil, nil
		}
		return nil, err
	}

	store, err := embed.Open(cfg.Embedding.CacheDir, embedder)
	if err != nil {
		// Store degrades to pass-through; keep it, surface the reason.
		return store, fmt.Errorf("embedding cache disabled: %v", err)
	}
	return store, nil
}

func apiPath(provider string) string {
	if provider == "openai" {
		return "/v1/embeddings"
	}
	return "/api/embeddings"
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openCache(cfg)
	if err != nil && store == nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no embedding provider configured")
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("📦 %d cached embeddings, %.2f MB on disk\n",
		stats.Entries, float64(stats.SizeBytes)/(1024*1024))
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openCache(cfg)
	if err != nil && store == nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no embedding provider configured")
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("🧹 Embedding cache cleared")
	return nil
}
