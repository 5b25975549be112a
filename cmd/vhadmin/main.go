package main

import "github.com/vpnhouse/console/internal/cli"

func main() {
	cli.Execute()
}
