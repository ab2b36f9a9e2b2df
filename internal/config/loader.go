package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultDatabase is used when NEO4J_DATABASE is not set.
const DefaultDatabase = "neo4j"

// Config holds the configuration for the graph database connection.
type Config struct {
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() Config {
	db := os.Getenv("NEO4J_DATABASE")
	if db == "" {
		db = DefaultDatabase
	}
	return Config{
		Neo4jURI:      os.Getenv("NEO4J_URI"),
		Neo4jUser:     os.Getenv("NEO4J_USER"),
		Neo4jPassword: os.Getenv("NEO4J_PASSWORD"),
		Neo4jDatabase: db,
	}
}

// LoadEnv loads environment variables from a .env file, searching up the directory tree.
// Variables already set in the environment are not overridden.
func LoadEnv() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached root
		}
		dir = parent
	}

	// Not found is fine
	return nil
}
