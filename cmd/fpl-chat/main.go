// ABOUTME: Terminal client for the FPL chat gateway
// ABOUTME: Streams replies into the terminal and keeps history in a local store

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/curphey/fpl-sub000/internal/client"
	"github.com/curphey/fpl-sub000/internal/config"
	"github.com/curphey/fpl-sub000/internal/history"
	"github.com/curphey/fpl-sub000/internal/logging"
	"github.com/curphey/fpl-sub000/internal/store"
	"github.com/curphey/fpl-sub000/internal/transcript"
)

type cliOptions struct {
	configPath   string
	gatewayURL   string
	conversation string
	token        string
	managerID    int
	showThinking bool
	apiKey       string
	verbose      bool
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "fpl-chat",
		Short:         "Chat with the FPL assistant",
		Long:          "Interactive Fantasy Premier League assistant. Replies stream from the gateway; history is kept locally per conversation.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, *opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			return runInteractive(cmd.Context(), sess)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: $FPL_CONFIG or ~/.config/fpl/gateway.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.gatewayURL, "gateway", "", "Gateway base URL")
	rootCmd.PersistentFlags().StringVarP(&opts.conversation, "conversation", "c", "", "Conversation id")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", "", "Bearer token (default: $FPL_TOKEN)")
	rootCmd.PersistentFlags().IntVar(&opts.managerID, "manager", 0, "Your FPL manager (team) id")
	rootCmd.PersistentFlags().BoolVar(&opts.showThinking, "thinking", false, "Show the model's reasoning")
	rootCmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "Anthropic API key to send with requests")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Log diagnostics to stderr")

	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))
	rootCmd.AddCommand(newClearCmd(opts))

	return rootCmd
}

func newAskCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send one message, print the reply and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, *opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("no prompt provided")
			}
			if err := sess.ask(cmd.Context(), prompt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func newListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, *opts)
			if err != nil {
				return err
			}
			kv, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			ids, err := history.Conversations(cmd.Context(), kv)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored conversations")
				return nil
			}
			for _, id := range ids {
				n := len(history.New(kv, id, historyOptions(cfg, nil)).Load(cmd.Context()))
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %d messages\n", id, n)
			}
			return nil
		},
	}
}

func newExportCmd(opts *cliOptions) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the conversation as HTML or Markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, *opts)
			if err != nil {
				return err
			}
			kv, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			id := cfg.Client.ConversationID
			conv := history.New(kv, id, historyOptions(cfg, nil)).Load(cmd.Context())

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			title := "FPL chat: " + id
			switch format {
			case "html":
				return transcript.WriteHTML(w, title, conv)
			case "md", "markdown":
				return transcript.WriteMarkdown(w, title, conv)
			default:
				return fmt.Errorf("unknown format %q (want html or md)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "html", "Output format: html|md")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newClearCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, *opts)
			if err != nil {
				return err
			}
			kv, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			history.New(kv, cfg.Client.ConversationID, historyOptions(cfg, nil)).Clear(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cfg.Client.ConversationID)
			return nil
		},
	}
}

// configPath returns the config file location.
// Priority: --config flag > FPL_CONFIG env var > XDG_CONFIG_HOME/fpl/gateway.yaml > ~/.config/fpl/gateway.yaml
func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if envPath := os.Getenv("FPL_CONFIG"); envPath != "" {
		return envPath
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "fpl", "gateway.yaml")
}

// resolveConfig loads the config file (or defaults) and applies flags over it.
func resolveConfig(cmd *cobra.Command, opts cliOptions) (*config.Config, error) {
	path := configPath(opts.configPath)

	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && opts.configPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("gateway") {
		cfg.Client.GatewayURL = opts.gatewayURL
	}
	if flags.Changed("conversation") {
		cfg.Client.ConversationID = opts.conversation
	}
	if flags.Changed("manager") {
		cfg.Client.ManagerID = opts.managerID
	}
	if flags.Changed("thinking") {
		cfg.Client.ShowThinking = opts.showThinking
	}
	if opts.token != "" {
		cfg.Client.Token = opts.token
	} else if cfg.Client.Token == "" {
		cfg.Client.Token = os.Getenv("FPL_TOKEN")
	}
	if cfg.Client.ManagerID < 0 {
		return nil, errors.New("--manager must be positive")
	}
	if strings.TrimSpace(cfg.Client.ConversationID) == "" {
		return nil, errors.New("conversation id must not be empty")
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (store.KV, error) {
	kv, err := store.Open(cfg.History.Backend, cfg.History.Path, cfg.History.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return kv, nil
}

func historyOptions(cfg *config.Config, logger *slog.Logger) history.Options {
	return history.Options{
		MaxMessages:      cfg.History.MaxMessages,
		MaxBytes:         cfg.History.MaxBytes,
		FallbackMessages: cfg.History.FallbackMessages,
		Logger:           logger,
	}
}

// session is one open conversation: its controller, store and renderer.
type session struct {
	cfg      *config.Config
	kv       store.KV
	ctrl     *client.Controller
	renderer *renderer
	logger   *slog.Logger
}

func openSession(cmd *cobra.Command, opts cliOptions) (*session, error) {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if !opts.verbose {
		logCfg.Level = "error"
	}
	logger := logging.New(logCfg, os.Stderr)

	kv, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var managerID *int
	if cfg.Client.ManagerID > 0 {
		id := cfg.Client.ManagerID
		managerID = &id
	}

	id := cfg.Client.ConversationID
	ctrl := client.New(id, &client.HTTPTransport{
		BaseURL: cfg.Client.GatewayURL,
		Token:   cfg.Client.Token,
	}, client.Options{
		History:      history.New(kv, id, historyOptions(cfg, logger)),
		Logger:       logger,
		ManagerID:    managerID,
		ShowThinking: cfg.Client.ShowThinking,
		APIKey:       opts.apiKey,
	})
	ctrl.Load(cmd.Context())

	return &session{
		cfg:      cfg,
		kv:       kv,
		ctrl:     ctrl,
		renderer: newRenderer(cmd.OutOrStdout(), cfg.Client.ShowThinking),
		logger:   logger,
	}, nil
}

// ask sends prompt and renders the reply until the request settles. If ctx
// ends first the request is cancelled.
func (s *session) ask(ctx context.Context, prompt string) error {
	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	updates, unsubscribe := s.ctrl.Subscribe(subCtx)
	defer unsubscribe()

	s.renderer.reset(s.ctrl.Snapshot().Seq)

	if err := s.ctrl.Send(ctx, prompt); err != nil {
		return err
	}

	settled := make(chan struct{})
	go func() {
		s.ctrl.Wait()
		close(settled)
	}()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				<-settled
				s.renderer.render(s.ctrl.Snapshot())
				return nil
			}
			s.renderer.render(snap)
		case <-settled:
			s.renderer.render(s.ctrl.Snapshot())
			return nil
		}
	}
}

func (s *session) Close() {
	s.ctrl.Close()
	if err := s.kv.Close(); err != nil {
		s.logger.Error("closing history store", "error", err)
	}
}
