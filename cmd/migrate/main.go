package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"retail-service/internal/infrastructure/store"
)

func main() {
	var direction string
	flag.StringVar(&direction, "direction", "up", "Migration direction: up")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN environment variable is required")
	}

	switch direction {
	case "up":
		if err := store.RunMigrations(dsn); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("migrations applied")
	default:
		log.Fatalf("Unknown migration direction: %s", direction)
	}
}
