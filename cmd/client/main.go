package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/cli"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
