package main

import (
	"os"

	"github.com/etcdbeat/cmd/agent"
)

func main() {
	os.Exit(agent.Execute())
}
