package main

import "example.com/baletrack/cmd"

func main() {
	cmd.Execute()
}
