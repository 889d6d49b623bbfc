package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"SpiritTalk/internal/audio"
	"SpiritTalk/internal/dialogue"
	"SpiritTalk/internal/game"
	"SpiritTalk/internal/logging"
	"SpiritTalk/internal/server"
	"SpiritTalk/internal/tui"
)

const version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "spirittalk",
		Usage:   "branching dialogue for forest spirits, in the browser or the terminal",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "human readable logs",
			},
			&cli.StringFlag{
				Name:  "graph",
				Usage: "dialogue graph `FILE` (built-in demo when empty)",
			},
			&cli.IntFlag{
				Name:  "max-chain",
				Usage: "most conversations one advance may pass through",
			},
			&cli.BoolFlag{
				Name:  "audio",
				Usage: "play sound cues on this machine",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			playCommand(),
			checkCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, environment and any flags the user set.
func loadConfig(c *cli.Context) (server.AppConfig, error) {
	cfg, err := server.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}

	var o server.Overrides
	if c.IsSet("log-level") {
		v := c.String("log-level")
		o.LogLevel = &v
	}
	if c.IsSet("pretty") {
		v := c.Bool("pretty")
		o.LogPretty = &v
	}
	if c.IsSet("graph") {
		v := c.String("graph")
		o.GraphPath = &v
	}
	if c.IsSet("max-chain") {
		v := c.Int("max-chain")
		o.MaxChain = &v
	}
	if c.IsSet("audio") {
		v := c.Bool("audio")
		o.Audio = &v
	}
	if c.IsSet("addr") {
		v := c.String("addr")
		o.Addr = &v
	}
	if c.IsSet("tick-hz") {
		v := c.Float64("tick-hz")
		o.TickHz = &v
	}
	if c.IsSet("watch") {
		v := c.Bool("watch")
		o.Watch = &v
	}
	return cfg.WithOverrides(o), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the browser client and websocket gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "address to listen on (e.g., 127.0.0.1:8080)",
			},
			&cli.Float64Flag{
				Name:  "tick-hz",
				Usage: "room update rate",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "reload the graph file when it changes",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.StartApp(ctx, cfg)
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "talk to the spirits in this terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "talker",
				Usage: "talker to focus first",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write logs to `FILE` instead of discarding them",
			},
			&cli.Float64Flag{
				Name:  "tick-hz",
				Usage: "room update rate",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			var out io.Writer = io.Discard
			if path := c.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			logging.SetupWriter(out, cfg.Log.Level, false)

			g, err := server.LoadGraph(cfg.Graph.Path)
			if err != nil {
				return err
			}

			sink := audio.Open(cfg.Audio.Enabled)
			if sp, ok := sink.(*audio.Speaker); ok {
				defer sp.Close()
			}
			opts := cfg.RoomOptions()
			opts.Audio = sink
			room := game.NewRoom("local", g, opts)

			screen, err := tui.Open()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			defer screen.Fini()

			app, err := tui.New(screen, room, &game.Player{ID: "local-" + uuid.NewString(), Name: "you"})
			if err != nil {
				return err
			}
			if id := c.String("talker"); id != "" && !app.SetFocus(id) {
				return fmt.Errorf("%w: %s", game.ErrUnknownTalker, id)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := app.Run(ctx, cfg.Server.TickHz); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate graph files",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			logging.Setup("warn", true)
			if c.NArg() == 0 {
				return cli.Exit("check needs at least one graph file", 2)
			}
			failed := 0
			for _, path := range c.Args().Slice() {
				g, err := dialogue.Load(path, dialogue.LoadOptions{})
				if err != nil {
					failed++
					fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(c.App.Writer, "%s: ok (%d conversations, %d branches, %d talkers)\n",
					path, len(g.Conversations), len(g.Branches), len(g.Talkers))
			}
			if failed > 0 {
				log.Warn().Int("failed", failed).Msg("graph check")
				return cli.Exit(fmt.Sprintf("%d graph file(s) invalid", failed), 1)
			}
			return nil
		},
	}
}
