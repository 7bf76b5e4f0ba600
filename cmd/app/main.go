package main

import (
	"log"

	"audio-transcriber/internal/bootstrap"
)

func main() {
	logger, closer, err := bootstrap.NewLogger()
	if err != nil {
		log.Fatalf("bootstrap logger: %v", err)
	}
	defer closer.Close()

	app, err := bootstrap.New(logger)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
