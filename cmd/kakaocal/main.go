package main

import "kakaocal/internal/cmd"

func main() {
	cmd.Execute()
}
