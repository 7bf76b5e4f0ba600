package main

import (
	"embed"
	"log"

	"audio-transcriber/internal/bootstrap"
)

//go:embed frontend/index.html frontend/wailsjs
var appAssets embed.FS

func main() {
	logger, closer, err := bootstrap.NewLogger()
	if err != nil {
		log.Fatalf("bootstrap logger: %v", err)
	}
	defer closer.Close()

	app, err := bootstrap.NewWithAssets(appAssets, logger)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
