package main

import (
	"github.com/netops-tools/invsync/pkg/cli"
)

func main() {
	cli.Execute()
}
