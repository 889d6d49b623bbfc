package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"SpiritTalk/internal/audio"
	"SpiritTalk/internal/dialogue"
	"SpiritTalk/internal/game"
)

// CleanupInterval is how often empty rooms are dropped.
const CleanupInterval = 60 * time.Second

// LoadGraph reads the configured graph, or the built-in one when no path is set.
func LoadGraph(path string) (*dialogue.Graph, error) {
	if path == "" {
		return dialogue.SeedGraph()
	}
	return dialogue.Load(path, dialogue.LoadOptions{})
}

// StartApp serves until ctx is cancelled.
func StartApp(ctx context.Context, cfg AppConfig) error {
	g, err := LoadGraph(cfg.Graph.Path)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	var hub *game.Hub
	metrics := NewMetrics(func() int { return hub.RoomCount() })

	sink := audio.Open(cfg.Audio.Enabled)
	if sp, ok := sink.(*audio.Speaker); ok {
		defer sp.Close()
	}
	opts := cfg.RoomOptions()
	opts.Audio = sink
	opts.Observer = metrics
	hub = game.NewHub(g, opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go hub.Run(ctx, cfg.Server.TickHz)

	// Periodic cleanup of empty rooms
	go func() {
		ticker := time.NewTicker(CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := hub.CleanupEmptyRooms(); n > 0 {
					log.Debug().Int("rooms", n).Msg("removed empty rooms")
				}
			}
		}
	}()

	if cfg.Graph.Watch && cfg.Graph.Path != "" {
		gw, err := NewGraphWatcher(cfg.Graph.Path, 0, hub.SetGraph)
		if err != nil {
			return err
		}
		gw.onResult = metrics.reloaded
		go gw.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewMux(hub, cfg, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.Server.Addr).
		Int("conversations", len(g.Conversations)).
		Int("talkers", len(g.Talkers)).
		Float64("tick_hz", cfg.Server.TickHz).
		Msg("starting web server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
