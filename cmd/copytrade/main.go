package main

import (
	"os"

	"github.com/tradetok/copytrade/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
