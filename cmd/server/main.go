package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server"
	"github.com/dmitrijs2005/webcatalog/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogFormat, os.Stdout)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer app.Close()

	if err := app.Migrate(ctx); err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
