// Command inventar manages the hardware inventory from the command line.
package main

import (
	"github.com/joho/godotenv"

	"github.com/cs121/verwaltung-db/internal/cli"
)

func main() {
	_ = godotenv.Load() // Load .env file if it exists
	cli.Execute()
}
