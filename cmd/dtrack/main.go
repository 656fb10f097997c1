package main

import "github.com/agusx1211/dtrack/internal/cli"

func main() {
	cli.Execute()
}
