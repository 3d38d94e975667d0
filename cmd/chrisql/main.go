// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/poiesic/chrisql"
	"github.com/poiesic/chrisql/config"
	"github.com/poiesic/chrisql/core"
	"github.com/poiesic/chrisql/importer"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := config.DefaultConfig()

	return &cli.App{
		Name:  "chrisql",
		Usage: "An embedded SQL database in the making",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   defaults.LogLevel,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the database directory",
				Value:   defaults.DataDir,
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Record store backend (fs, badger)",
				Value: defaults.Backend,
			},
			&cli.Int64Flag{
				Name:  "cache-size",
				Usage: "Read cache size in bytes (0 disables the cache)",
				Value: defaults.CacheSize,
			},
		},
		Metadata: map[string]any{},
		Before:   setup,
		Action:   replCommand,
		Commands: []*cli.Command{
			{
				Name:   "repl",
				Usage:  "Start the interactive loop (default)",
				Action: replCommand,
			},
			{
				Name:      "put",
				Usage:     "Write a record, replacing any previous content",
				ArgsUsage: "<name> [content]",
				Action:    putCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read content from a file instead of the argument or stdin",
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Print a record's content",
				ArgsUsage: "<name>",
				Action:    getCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "text",
						Usage: "Require UTF-8 content and print it followed by a newline",
					},
				},
			},
			{
				Name:   "ls",
				Usage:  "List record names",
				Action: lsCommand,
			},
			{
				Name:      "rm",
				Usage:     "Delete a record",
				ArgsUsage: "<name>",
				Action:    rmCommand,
			},
			{
				Name:      "stat",
				Usage:     "Show a record's size and modification time",
				ArgsUsage: "<name>",
				Action:    statCommand,
			},
			{
				Name:      "import",
				Usage:     "Import every file of a directory as a record",
				ArgsUsage: "<dir>",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent writers",
						Value: defaults.Import.PoolSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: defaults.Import.ReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per record write",
						Value: defaults.Import.MaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: defaults.Import.RetryDelay,
					},
				},
			},
		},
	}
}

// setup loads the configuration, applies global flags over it and installs the logger.
func setup(c *cli.Context) error {
	var opts []config.Option
	if c.IsSet("db") {
		opts = append(opts, config.WithDataDir(c.String("db")))
	}
	if c.IsSet("backend") {
		opts = append(opts, config.WithBackend(c.String("backend")))
	}
	if c.IsSet("log-level") {
		opts = append(opts, config.WithLogLevel(c.String("log-level")))
	}
	if c.IsSet("cache-size") {
		opts = append(opts, config.WithCacheSize(c.Int64("cache-size")))
	}

	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path, opts...)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.NewConfig(opts...)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := setupLogger(c.App.ErrWriter, cfg.LogLevel); err != nil {
		return err
	}

	c.App.Metadata[configKey] = cfg
	return nil
}

func setupLogger(w io.Writer, levelStr string) error {
	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

func openDatabase(c *cli.Context) (*chrisql.Database, error) {
	cfg := configFrom(c)
	db, err := chrisql.NewDatabase(cfg.DataDir, chrisql.WithConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// withDatabase opens the database, runs fn and closes the database.
func withDatabase(c *cli.Context, fn func(db *chrisql.Database) error) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func requireArgs(c *cli.Context, lo, hi int) error {
	if n := c.NArg(); n < lo || n > hi {
		return fmt.Errorf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

// replCommand runs the interactive loop. An interrupt ends the session
// like exit does.
func replCommand(c *cli.Context) error {
	return withDatabase(c, func(db *chrisql.Database) error {
		err := db.NewSession().Run(c.Context, c.App.Reader, c.App.Writer)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(c.App.Writer)
			return nil
		}
		return err
	})
}

func putCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, 2); err != nil {
		return err
	}
	name := c.Args().Get(0)

	var (
		content []byte
		err     error
	)
	switch {
	case c.IsSet("file"):
		if c.NArg() > 1 {
			return fmt.Errorf("content argument and --file are mutually exclusive")
		}
		content, err = os.ReadFile(c.String("file"))
	case c.NArg() == 2:
		content = []byte(c.Args().Get(1))
	default:
		content, err = io.ReadAll(c.App.Reader)
	}
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	return withDatabase(c, func(db *chrisql.Database) error {
		if err := db.Store().Write(c.Context, name, content); err != nil {
			return fmt.Errorf("put failed: %w", err)
		}
		return nil
	})
}

func getCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, 1); err != nil {
		return err
	}
	name := c.Args().Get(0)

	return withDatabase(c, func(db *chrisql.Database) error {
		content, err := db.Store().Read(c.Context, name)
		if err != nil {
			return fmt.Errorf("get failed: %w", err)
		}

		if c.Bool("text") {
			text, err := core.DecodeText(content)
			if err != nil {
				return fmt.Errorf("get failed: %q: %w", name, err)
			}
			_, err = fmt.Fprintln(c.App.Writer, text)
			return err
		}

		_, err = c.App.Writer.Write(content)
		return err
	})
}

func lsCommand(c *cli.Context) error {
	if err := requireArgs(c, 0, 0); err != nil {
		return err
	}

	return withDatabase(c, func(db *chrisql.Database) error {
		names, err := db.Store().List(c.Context)
		if err != nil {
			return fmt.Errorf("ls failed: %w", err)
		}
		for _, name := range names {
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	})
}

func rmCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, 1); err != nil {
		return err
	}

	return withDatabase(c, func(db *chrisql.Database) error {
		if err := db.Store().Delete(c.Context, c.Args().Get(0)); err != nil {
			return fmt.Errorf("rm failed: %w", err)
		}
		return nil
	})
}

func statCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, 1); err != nil {
		return err
	}

	return withDatabase(c, func(db *chrisql.Database) error {
		info, err := db.Store().Stat(c.Context, c.Args().Get(0))
		if err != nil {
			return fmt.Errorf("stat failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\n", info.Name, info.Size, info.ModTime.UTC().Format(time.RFC3339))
		return nil
	})
}

func importCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, 1); err != nil {
		return err
	}
	src := c.Args().Get(0)

	cfg := configFrom(c).Import
	if c.IsSet("pool-size") {
		cfg.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("report-interval") {
		cfg.ReportInterval = c.Int("report-interval")
	}
	if c.IsSet("max-retries") {
		cfg.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.RetryDelay = c.Duration("retry-delay")
	}

	// Validate config
	if cfg.PoolSize <= 0 {
		return fmt.Errorf("pool-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	return withDatabase(c, func(db *chrisql.Database) error {
		imp, err := db.NewImporter(
			importer.WithPoolSize(cfg.PoolSize),
			importer.WithRetries(cfg.MaxRetries, cfg.RetryDelay),
			importer.WithReportInterval(cfg.ReportInterval),
			importer.WithProgress(c.App.ErrWriter),
		)
		if err != nil {
			return fmt.Errorf("failed to create importer: %w", err)
		}
		defer imp.Release()

		fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", db.Path())
		fmt.Fprintf(c.App.ErrWriter, "Source: %s\n", src)
		fmt.Fprintln(c.App.ErrWriter)

		summary, err := imp.ImportDir(c.Context, src)
		if err != nil {
			if summary.Failed > 0 {
				return fmt.Errorf("import failed for %d of %d files: %w",
					summary.Failed, summary.Imported+summary.Failed, err)
			}
			return fmt.Errorf("import failed: %w", err)
		}
		return nil
	})
}
