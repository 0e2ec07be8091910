package main

import "github.com/vietddude/devkit/internal/cli"

func main() {
	cli.Execute()
}
