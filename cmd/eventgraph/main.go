package main

import (
	"os"

	"github.com/jengzang/eventgraph-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
