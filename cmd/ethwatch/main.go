package main

import "ethwatch/cmd/ethwatch/cmd"

func main() {
	cmd.Execute()
}
