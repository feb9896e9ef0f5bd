package main

import (
	"log"

	"github.com/m3rciful/juliabot/bot"
	corecmd "github.com/m3rciful/juliabot/core/cmd"
)

func main() {
	if err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		Setup:             bot.Setup,
	}); err != nil {
		log.Fatal(err)
	}
}
