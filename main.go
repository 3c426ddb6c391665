package main

import (
	"github.com/alamayub/omagle-clone/cmd"
	"github.com/alamayub/omagle-clone/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
