package main

import "github.com/pojntfx/tsctl/cmd/tsctl/cmd"

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
