package main

import (
	"context"
	"fmt"
	"os"

	"github.com/novaiq/backend/internal/bootstrap"
)

func main() {
	if err := bootstrap.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
