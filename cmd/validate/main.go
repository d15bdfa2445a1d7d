package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <pack.json> [pack.json...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &PackValidator{}
		fmt.Printf("Validating %s...\n", filename)
		n, err := validator.ValidateFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("Pack file is valid! (%d templates)\n", n)
	}

	if failed {
		os.Exit(1)
	}
}
