package main

import "github.com/drblury/resourcewatch/internal/cli"

func main() {
	cli.Execute()
}
