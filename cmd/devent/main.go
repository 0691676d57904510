package main

import "github.com/pfrederiksen/devent/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
