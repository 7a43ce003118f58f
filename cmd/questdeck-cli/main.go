package main

import "github.com/questdeck/questdeck/cmd/questdeck-cli/cmd"

func main() {
	cmd.Execute()
}
