package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	tripmesh "github.com/tripmesh/tripmesh"
	"github.com/tripmesh/tripmesh/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	applyEnvOverrides(cfg)

	client, err := tripmesh.NewClient(cfg)
	if err != nil {
		log.Fatalf("build client: %v", err)
	}
	defer client.Close(context.Background())

	server := tripmesh.NewServer(client)
	log.Println("tripmesh MCP server starting on stdio")
	if err := mcpserver.ServeStdio(server); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// applyEnvOverrides fills secrets from the environment so keys never need to
// live in the yaml file.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = v
		}
	}
	if v := os.Getenv("PINECONE_API_KEY"); v != "" && cfg.VectorDB.APIKey == "" {
		cfg.VectorDB.APIKey = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" && cfg.Graph.Password == "" {
		cfg.Graph.Password = v
	}
}
