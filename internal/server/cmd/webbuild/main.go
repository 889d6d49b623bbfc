// Command webbuild bundles web/src/main.ts into web/client.js.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

func main() {
	minify := flag.Bool("minify", false, "minify the bundle and drop the inline source map")
	watch := flag.Bool("watch", false, "rebuild whenever a source file changes")
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("getwd")
	}

	opts := api.BuildOptions{
		EntryPoints:       []string{filepath.Join(wd, "web", "src", "main.ts")},
		Outfile:           filepath.Join(wd, "web", "client.js"),
		AbsWorkingDir:     wd,
		Bundle:            true,
		Format:            api.FormatIIFE,
		Target:            api.ES2018,
		Platform:          api.PlatformBrowser,
		LogLevel:          api.LogLevelInfo,
		Sourcemap:         api.SourceMapInline,
		MinifyWhitespace:  *minify,
		MinifyIdentifiers: *minify,
		MinifySyntax:      *minify,
		Write:             true,
		Loader: map[string]api.Loader{
			".ts": api.LoaderTS,
		},
	}
	if *minify {
		opts.Sourcemap = api.SourceMapNone
	}

	if !*watch {
		result := api.Build(opts)
		if len(result.Errors) > 0 {
			log.Fatal().Int("errors", len(result.Errors)).Msg("esbuild failed")
		}
		return
	}

	ctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		log.Fatal().Int("errors", len(ctxErr.Errors)).Msg("esbuild context")
	}
	defer ctx.Dispose()
	if err := ctx.Watch(api.WatchOptions{}); err != nil {
		log.Fatal().Err(err).Msg("esbuild watch")
	}
	log.Info().Msg("watching web/src")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
}
