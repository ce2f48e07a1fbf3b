package main

import (
	"log"

	"github.com/MrSnakeDoc/bookshare/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ bookshare failed to start: %v", err)
	}
}
