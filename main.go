package main

import "pulse/commands"

func main() {
	commands.Execute()
}
