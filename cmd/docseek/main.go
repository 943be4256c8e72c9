// Package main is the entry point for the docseek service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/docseek/cmd/docseek/app"
)

func main() {
	app.NewApp().Run()
}
