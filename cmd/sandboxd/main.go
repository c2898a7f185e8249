package main

import "github.com/sandboxd/sandboxd/internal/cli"

func main() {
	cli.Execute()
}
