package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/connexus-ai/knowledge-agent/pkg/chunker"
	"github.com/connexus-ai/knowledge-agent/pkg/embedder"
	"github.com/connexus-ai/knowledge-agent/pkg/extract"
	"github.com/connexus-ai/knowledge-agent/pkg/graph"
	"github.com/connexus-ai/knowledge-agent/pkg/indexer"
	"github.com/connexus-ai/knowledge-agent/pkg/vectorstore"
)

var (
	indexSite     string
	indexDays     int
	indexLimit    int
	indexSkipEmbs bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one indexing pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider := graph.New(cfg.Graph, cfg.Identity)
		extractor := extract.New(provider)
		chk := chunker.New(chunker.DefaultOptions())

		embed, err := embedder.New(cfg.OpenAI)
		if err != nil {
			return err
		}
		store, err := vectorstore.New(ctx, cfg.Vector)
		if err != nil {
			return err
		}
		defer store.Close()

		opts := indexer.Options{
			SiteURL:        cfg.Indexer.SiteURL,
			DaysBack:       cfg.Indexer.DaysBack,
			Limit:          indexLimit,
			SkipEmbeddings: indexSkipEmbs,
		}
		if indexSite != "" {
			opts.SiteURL = indexSite
		}
		if indexDays > 0 {
			opts.DaysBack = indexDays
		}

		pipeline := indexer.NewPipeline(provider, extractor, chk, embed, store)
		result, err := pipeline.Run(ctx, opts)
		if err != nil {
			return err
		}

		fmt.Printf("found %d, processed %d, chunks %d, errors %d, took %s\n",
			result.DocumentsFound, result.DocumentsProcessed, result.ChunksCreated, len(result.Errors), result.Duration)
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexSite, "site", "", "site URL to scope the pass to")
	indexCmd.Flags().IntVar(&indexDays, "days", 0, "only index documents modified in the last N days")
	indexCmd.Flags().IntVar(&indexLimit, "limit", 0, "cap on documents processed")
	indexCmd.Flags().BoolVar(&indexSkipEmbs, "skip-embeddings", false, "stop before embedding and writing")
	rootCmd.AddCommand(indexCmd)
}
