package main

import "colony-server/internal/cli"

func main() {
	cli.Execute()
}
