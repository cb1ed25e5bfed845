package main

import (
	"context"
	"os"

	"github.com/nonibytes/textindex/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:]))
}
