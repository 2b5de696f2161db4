package main

import "github.com/mobiwave/mobiwave-gateway/cmd"

func main() {
	cmd.Execute()
}
