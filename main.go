package main

import (
	"embed"
	"log"

	"sdp-assistant/internal/bootstrap"
)

//go:embed frontend/index.html
var assets embed.FS

func main() {
	app, err := bootstrap.NewWithAssets(assets)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
