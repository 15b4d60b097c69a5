package main

import "github.com/agentic-research/codegraph/cmd"

func main() {
	cmd.Execute()
}
