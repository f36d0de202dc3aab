package main

import "github.com/dmitrijs2005/webcatalog/internal/cli"

func main() {
	cli.Execute()
}
