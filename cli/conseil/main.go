package main

import (
	"os"

	conseilcmder "github.com/conseilapp/conseil/cmd/conseil"
)

func main() {
	cmd := conseilcmder.NewConseilCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
