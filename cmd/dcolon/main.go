// Package main is the entry point for the dcolon CLI.
package main

import "github.com/funvibe/dcolon/pkg/cli"

func main() {
	cli.Execute()
}
