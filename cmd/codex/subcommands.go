package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/syllogismos/codex/internal/auth"
	"github.com/syllogismos/codex/internal/config"
)

func loginMain(root rootArgs, args []string) {
	if len(args) > 0 && args[0] == "status" {
		cfg, err := config.Load("")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = config.ApplyKVOverrides(cfg, root.overrides)
		if resolveToken(cfg) == "" {
			fmt.Println("not logged in")
		} else {
			fmt.Println("token configured")
		}
		return
	}

	fs := flag.NewFlagSet("login", flag.ExitOnError)
	var withAPIKey bool
	var apiKey string
	var deviceAuth bool
	var issuer string
	var clientID string
	fs.BoolVar(&withAPIKey, "with-api-key", false, "Read the auth token from stdin")
	fs.StringVar(&apiKey, "api-key", "", "(deprecated) Use --with-api-key and pipe the value instead")
	fs.BoolVar(&deviceAuth, "device-auth", false, "Use device code login (not supported)")
	fs.StringVar(&issuer, "experimental_issuer", "", "Experimental issuer base URL (unused placeholder)")
	fs.StringVar(&clientID, "experimental_client-id", "", "Experimental client ID (unused placeholder)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse login args: %v", err)
	}

	if apiKey != "" {
		log.Fatalf("The --api-key flag is no longer supported. Pipe the token instead, e.g. `printenv ANTHROPIC_AUTH_TOKEN | codex login --with-api-key`.")
	}
	if deviceAuth {
		log.Fatalf("Device auth is not implemented; please use --with-api-key instead.")
	}
	_ = issuer
	_ = clientID

	var key string
	switch {
	case withAPIKey:
		key = readTokenFromStdin()
	case strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")) != "":
		key = strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN"))
	case strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "":
		key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	default:
		key = promptToken()
	}
	if err := auth.SaveToken(key); err != nil {
		log.Fatalf("failed to save token: %v", err)
	}
	fmt.Println("Token saved.")
}

func logoutMain(root rootArgs, args []string) {
	if err := auth.Clear(); err != nil {
		log.Fatalf("failed to clear stored credentials: %v", err)
	}
	fmt.Println("Logged out and cleared stored credentials.")
}

// applyMain 是 `exec --patch` 的便捷入口：补齐补丁路径后原样交给 exec。
func applyMain(root rootArgs, args []string) {
	hasPatchFlag := false
	for _, arg := range args {
		if arg == "--patch" || arg == "-patch" || strings.HasPrefix(arg, "--patch=") || strings.HasPrefix(arg, "-patch=") {
			hasPatchFlag = true
			break
		}
	}
	switch {
	case hasPatchFlag:
	case len(args) > 0 && !strings.HasPrefix(args[0], "-"):
		args = append([]string{"--patch", args[0]}, args[1:]...)
	default:
		args = append([]string{"--patch", "patch.diff"}, args...)
	}
	execMain(root, args)
}

func readTokenFromStdin() string {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("failed to read token from stdin: %v", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		log.Fatalf("no token provided on stdin")
	}
	return key
}

func promptToken() string {
	fmt.Print("Enter token: ")
	reader := bufio.NewReader(os.Stdin)
	key, _ := reader.ReadString('\n')
	key = strings.TrimSpace(key)
	if key == "" {
		log.Fatalf("empty token provided")
	}
	return key
}
