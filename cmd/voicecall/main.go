package main

import (
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/cli"
)

func main() {
	cli.Execute()
}
