package main

import "github.com/meshflow/hybridvem/cmd"

func main() {
	cmd.Execute()
}
