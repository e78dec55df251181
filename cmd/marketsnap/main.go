package main

import "market-snapshot/internal/cli"

func main() {
	cli.Execute()
}
