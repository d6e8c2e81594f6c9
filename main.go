package main

import "github.com/fakeyudi/aurasync/cmd"

func main() {
	cmd.Execute()
}
