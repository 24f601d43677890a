package main

import "guide/internal/cli"

func main() {
	cli.Execute()
}
