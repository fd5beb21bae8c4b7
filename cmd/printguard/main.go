package main

import "github.com/ogulcanaydogan/printguard/internal/cli"

func main() {
	cli.Execute()
}
