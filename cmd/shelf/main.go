package main

import (
	"github.com/ssargent/mediashelf/cmd/shelf/cmd"
)

func main() {
	cmd.Execute()
}
