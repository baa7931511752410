package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/learnhub/internal/app"
)

func main() {
	if err := app.Run(nil, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "learnhub: %v\n", err)
		os.Exit(1)
	}
}
