package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/latex-resume-agent/internal/db"
	"github.com/jonathan/latex-resume-agent/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing the ranking, synthesis, normalization and compilation stages and
the full pipeline. When DATABASE_URL is set the schema is migrated and the /resumes routes are enabled.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	client, err := requireGenerativeClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	sim, err := newSimilarity(ctx, cfg, client)
	if err != nil {
		return err
	}
	compiler, err := newCompiler(ctx, cfg)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(compiler.Backends()))
	for _, b := range compiler.Backends() {
		names = append(names, b.Name())
	}
	log.Printf("[server] compiler backends: %s", strings.Join(names, ", "))

	synth := newSynthesizer(cfg, client)
	srvCfg := server.Config{
		Port:        cfg.Port,
		Ranker:      newRanker(cfg, sim),
		Synthesizer: synth,
		Compiler:    compiler,
		Analyzer:    client,
		Credentials: client.Pool(),
	}
	if cfg.TailorItems {
		srvCfg.Tailorer = synth
	}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		srvCfg.Store = database
	} else {
		log.Printf("[server] DATABASE_URL not set; /resumes routes are disabled")
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}
