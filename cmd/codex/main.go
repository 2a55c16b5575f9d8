package main

import (
	"fmt"
	"os"

	"github.com/syllogismos/codex/internal/logger"
)

var log = logger.Named("cli")

// version 由构建时 -ldflags "-X main.version=..." 注入。
var version = "dev"

func main() {
	logger.Configure()
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "exec":
			execMain(root, rest[1:])
			return
		case "apply":
			applyMain(root, rest[1:])
			return
		case "login":
			loginMain(root, rest[1:])
			return
		case "logout":
			logoutMain(root, rest[1:])
			return
		case "ping":
			pingMain(root, rest[1:])
			return
		case "version", "--version", "-v":
			fmt.Println(version)
			return
		}
	}

	// 不带子命令时等同于 exec。
	execMain(root, rest)
}
