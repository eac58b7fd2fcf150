// Command app runs the desktop application serving the frontend from disk,
// which keeps dev iteration on frontend files out of the embed step.
package main

import (
	"log"

	"sdp-assistant/internal/bootstrap"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
