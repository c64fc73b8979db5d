package main

import "github.com/embedkit/logfetch/cmd"

func main() {
	cmd.Execute()
}
