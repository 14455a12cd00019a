package main

import (
	"log"

	"github.com/MrSnakeDoc/wander/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("wander failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("wander stopped with error: %v", err)
	}
}
