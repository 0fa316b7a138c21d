package main

import (
	"github.com/tradelens/tradelens/internal/cli"
)

func main() {
	cli.Execute()
}
