package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/garagon/tatu/cmd/tatu/commands"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "tatu: %v\n", err)
	if errors.Is(err, commands.ErrThresholdExceeded) {
		os.Exit(1)
	}
	os.Exit(2)
}
