package main

import "github.com/vietddude/devkit/internal/cli"

// Allows `go run .` from the repository root.
func main() {
	cli.Execute()
}
