package main

import (
	"github.com/joho/godotenv"

	"github.com/KaramelBytes/pivotscribe/cmd"
)

func main() {
	// Load a local .env if present so OPENROUTER_API_KEY and friends are
	// visible before config resolution. A missing file is fine.
	_ = godotenv.Load()

	cmd.Execute()
}
