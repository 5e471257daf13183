package main

import (
	"os"

	appLog "dayview/internal/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		appLog.Error("dayview failed", err)
		os.Exit(1)
	}
}
