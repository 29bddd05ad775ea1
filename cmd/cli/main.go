package main

import "learnhub/cmd/cli/command"

func main() {
	command.Execute()
}
