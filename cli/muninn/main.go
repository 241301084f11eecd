package main

import (
	"os"

	muninncmder "github.com/papercomputeco/muninn/cmd/muninn"
	"github.com/papercomputeco/muninn/pkg/logger"
)

func main() {
	cmd := muninncmder.NewMuninnCmd()
	if err := cmd.Execute(); err != nil {
		logger.NewCLI(false).Error(err.Error())
		os.Exit(1)
	}
}
