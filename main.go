// main.go
//
// Minimal entry point: loads an optional .env file, then delegates CLI handling
// to the Cobra root command in cmd/root.go

package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/constructrisk/riskopt/cmd"
)

func main() {
	// RISKOPT_* variables in .env feed the config layer; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Ignoring .env: %v", err)
	}
	cmd.Execute()
}
