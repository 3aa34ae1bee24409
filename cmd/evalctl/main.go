// cmd/evalctl/main.go
package main

import (
	"fmt"
	"os"

	"github.com/edulab-kr/evalassist/internal/cli"
)

var (
	version = "v0.1.0" // 构建时覆盖
)

func main() {
	rootCmd := cli.NewRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
