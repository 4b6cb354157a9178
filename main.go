package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/mkurata/docship/pkg/cli"
)

func main() {
	// Optional .env for local development; absence is not an error
	_ = godotenv.Load()

	if err := cli.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
