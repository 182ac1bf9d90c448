package main

import (
	"log"

	"github.com/impression-social/impression-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
