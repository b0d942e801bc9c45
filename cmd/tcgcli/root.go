package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/TCG-Companion/internal/companion"
	"github.com/ramonehamilton/TCG-Companion/internal/config"
	"github.com/ramonehamilton/TCG-Companion/internal/decks"
	"github.com/ramonehamilton/TCG-Companion/internal/version"
)

// cli holds the flags shared by all subcommands and the opened deck store.
type cli struct {
	configPath  string
	dataDir     string
	backend     string
	storagePath string
	offline     bool
	debug       bool

	app *companion.App
}

// newRootCmd builds a fresh command tree bound to c. Tests call it once per
// run so no state leaks between executions.
func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tcgcli",
		Short:         "Track trading card game decks and battle results.",
		Long:          "tcgcli builds decks from the card catalog, records battle outcomes\nand reports win/loss statistics per deck.",
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default is $HOME/.tcg-companion/config.toml)")
	flags.StringVar(&c.dataDir, "data-dir", "", "directory for default storage and catalog files (default is $HOME/.tcg-companion)")
	flags.StringVar(&c.backend, "backend", "", `deck storage backend ("sqlite" or "json")`)
	flags.StringVar(&c.storagePath, "storage-path", "", "database file or deck directory")
	flags.BoolVar(&c.offline, "offline", false, "skip the remote card catalog")
	flags.BoolVar(&c.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newDecksCmd(c),
		newCardsCmd(c),
		newBattleCmd(c),
		newStatsCmd(c),
		newChartCmd(c),
		newExportCmd(c),
	)

	return cmd
}

// execute runs cmd and releases the deck store afterwards, whether or not the
// command succeeded. Cobra skips post-run hooks after a failed RunE.
func (c *cli) execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if closeErr := c.close(); closeErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", closeErr)
		err = errors.Join(err, closeErr)
	}
	return err
}

func (c *cli) open(ctx context.Context, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var cfg *config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if c.backend != "" {
		cfg.Storage.Backend = c.backend
	}
	if c.storagePath != "" {
		cfg.Storage.Path = c.storagePath
	}
	if c.offline {
		cfg.Catalog.RemoteEnabled = false
	}
	if c.debug {
		cfg.App.DebugMode = true
	}

	level := slog.LevelWarn
	if cfg.App.DebugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	c.app, err = companion.Open(ctx, cfg, companion.Options{
		DataDir: c.dataDir,
		Logger:  logger,
	})
	return err
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *cli) decks() *decks.Service {
	return c.app.Decks
}

// explain turns deck store errors into messages for the terminal.
func explain(err error) error {
	switch {
	case errors.Is(err, decks.ErrPersistence):
		return fmt.Errorf("could not save your change, it was not applied: %w", err)
	default:
		return err
	}
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
