package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bloops-games/joustparty/internal/joust"
	"github.com/bloops-games/joustparty/internal/joust/console"
	"github.com/bloops-games/joustparty/internal/joust/resource"
	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/shutdown"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"
)

var version string

func main() {
	_, _ = fmt.Fprint(os.Stdout, resource.Graffiti)
	_, _ = fmt.Fprintf(os.Stdout, resource.GreetingCLI, resource.ProjectName, version, resource.GithubURL)
	_, _ = fmt.Fprint(os.Stdout, resource.TextHelp)

	ctx, done := shutdown.New()
	defer done()

	config := joust.Config{}
	if err := envconfig.Process("", &config); err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, &config); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, config *joust.Config) error {
	logger := logging.FromContext(ctx).Named("main.realMain")

	app, err := joust.NewApp(ctx, config)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	defer func() {
		if err := app.Close(ctx); err != nil {
			logger.Errorf("close: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Run(gCtx)
	})
	g.Go(func() error {
		// the console ends the session on quit or EOF
		defer cancel()
		c := console.New(app.Manager, app.Driver, app.Rounds, app.Stats, config.RecentRound, os.Stdout)
		return c.Run(gCtx, os.Stdin)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}
