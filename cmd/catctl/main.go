// Command catctl browses paper and reference categories through the API.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
