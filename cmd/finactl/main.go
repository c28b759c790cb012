package main

import (
	"fina/cmd/finactl/commands"
	"fina/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	commands.Execute()
}
