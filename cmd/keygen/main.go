package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/warlist-bot/pkg/auth"
	"github.com/arnavshah/warlist-bot/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <name>")
		os.Exit(1)
	}

	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if cfg.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in .env")
		os.Exit(1)
	}

	name := os.Args[1]
	apiKey := auth.NewSigner(cfg.JWTSecret, cfg.APIMasterSecret).GenerateHMACKey(name)
	fmt.Printf("Generated Key for %s:\n%s\n", name, apiKey)
}
