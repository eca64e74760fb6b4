package main

import (
	"log"
	"os"

	"github.com/fingoldin/sbrlmod/internal/api"
	"github.com/fingoldin/sbrlmod/internal/db"
)

func main() {
	log.Println("Starting sbrlmod training service...")

	dbUrl := os.Getenv("DATABASE_URL")
	var dbConn *db.PostgresStore
	if dbUrl != "" {
		var err error
		dbConn, err = db.Connect(dbUrl)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without persisting run history. Error: %v", err)
		} else {
			defer dbConn.Close()
			if err := dbConn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set — running with in-memory run tracking only")
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(dbConn, wsHub)

	port := getEnvOrDefault("PORT", "5339")
	log.Printf("Engine running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
