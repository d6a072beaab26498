package main

import "scorepusher/cmd/scorepusher/cmd"

func main() {
	cmd.Execute()
}
