package main

import (
	"github.com/bacalhau-project/tiercache/cmd/cli"
)

func main() {
	cli.Execute()
}
