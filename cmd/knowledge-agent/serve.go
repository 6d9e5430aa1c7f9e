package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/connexus-ai/knowledge-agent/api"
	"github.com/connexus-ai/knowledge-agent/pkg/chat"
	"github.com/connexus-ai/knowledge-agent/pkg/chunker"
	"github.com/connexus-ai/knowledge-agent/pkg/embedder"
	"github.com/connexus-ai/knowledge-agent/pkg/extract"
	"github.com/connexus-ai/knowledge-agent/pkg/graph"
	"github.com/connexus-ai/knowledge-agent/pkg/indexer"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
	"github.com/connexus-ai/knowledge-agent/pkg/vectorstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the scheduled indexer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := log.WithModule("serve")

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

		generator, err := chat.NewAzureGenerator(cfg.OpenAI)
		if err != nil {
			return err
		}
		agent := chat.NewAgent(generator, provider, embed, store, extractor, cfg.Chat)

		pipeline := indexer.NewPipeline(provider, extractor, chk, embed, store)
		scheduler := indexer.NewScheduler(pipeline, cfg.Indexer)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()

		server := api.New(cfg, api.Deps{
			Agent:     agent,
			Provider:  provider,
			Scheduler: scheduler,
			Pipeline:  pipeline,
			Store:     store,
		})

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
			return server.Shutdown(context.Background())
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
