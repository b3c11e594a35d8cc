// Command bruch is the offline point of sale for damaged goods.
package main

import (
	"context"
	"os"

	"github.com/roach88/bruch/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
