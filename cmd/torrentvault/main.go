// Package main 启动应用程序
package main

import (
	"os"

	"github.com/yeisme/torrentvault/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
