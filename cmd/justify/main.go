package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"justify/internal/app"
	"justify/internal/config"
	"justify/internal/conversation"
	"justify/internal/glossary"
	"justify/internal/server"
	"justify/internal/service"
	"justify/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	var asJSON bool

	rootCmd := &cobra.Command{
		Use:           "justify",
		Short:         "Question answering, suggested questions and glossaries over legal documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults to ./config.yaml or ~/.config/justify/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	chatCmd := &cobra.Command{
		Use:   "chat FILE...",
		Short: "Chat with documents in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, snap, err := buildFromFiles(cmd.Context(), configPath, args)
			if err != nil {
				return err
			}
			defer a.Close()
			m := tui.New(cmd.Context(), a.Session, snap)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}

	var question string
	askCmd := &cobra.Command{
		Use:   "ask FILE... --question TEXT",
		Short: "Answer one question about documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(question) == "" {
				return errors.New("--question is required")
			}
			a, _, err := buildFromFiles(cmd.Context(), configPath, args)
			if err != nil {
				return err
			}
			defer a.Close()
			answer, results, err := a.Session.Ask(cmd.Context(), question, nil)
			if err != nil {
				return err
			}
			sources := conversation.Sources(results)
			if asJSON {
				return printJSON(cmd, map[string]any{"answer": answer, "sources": sources})
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			if len(sources) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
				fmt.Fprint(cmd.OutOrStdout(), conversation.FormatSources(sources))
			}
			return nil
		},
	}
	askCmd.Flags().StringVarP(&question, "question", "q", "", "question to ask")

	suggestCmd := &cobra.Command{
		Use:   "suggest FILE...",
		Short: "Print suggested questions for documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, snap, err := buildFromFiles(cmd.Context(), configPath, args)
			if err != nil {
				return err
			}
			defer a.Close()
			if asJSON {
				return printJSON(cmd, snap.Suggestions)
			}
			for i, q := range snap.Suggestions {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, q)
			}
			return nil
		},
	}

	glossaryCmd := &cobra.Command{
		Use:   "glossary FILE...",
		Short: "Print the legal glossary of documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, snap, err := buildFromFiles(cmd.Context(), configPath, args)
			if err != nil {
				return err
			}
			defer a.Close()
			if asJSON {
				return printJSON(cmd, snap.Glossary)
			}
			printGlossary(cmd, snap.Glossary)
			return nil
		},
	}

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Serve the HTTP API, optionally preloading documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if len(args) > 0 {
				if _, err := a.LoadAndBuild(cmd.Context(), args); err != nil {
					return err
				}
			}
			return runServer(cmd.Context(), a)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(chatCmd, askCmd, suggestCmd, glossaryCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func buildFromFiles(ctx context.Context, configPath string, paths []string) (*app.App, *service.Snapshot, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	snap, err := a.LoadAndBuild(ctx, paths)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, snap, nil
}

func runServer(ctx context.Context, a *app.App) error {
	router := server.NewRouter(server.RouterDeps{
		Session:       a.Session,
		Loader:        a.Loader,
		Conversations: a.Conversations,
		MaxUploadMB:   a.Config.Server.MaxUploadMB,
		Logger:        a.Logger,
	})
	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.Logger.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printGlossary(cmd *cobra.Command, entries []glossary.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No glossary terms found.")
		return
	}
	for _, e := range entries {
		fmt.Fprintln(cmd.OutOrStdout(), e.Source)
		for _, cat := range glossary.Categories {
			if terms := e.Terms[cat]; len(terms) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", cat, strings.Join(terms, ", "))
			}
		}
	}
}
