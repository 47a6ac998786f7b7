package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	userID     string
	backendURL string
	language   string
	timeout    time.Duration
	natsURL    string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Terminal client for the document chat service",
	Long: `chat talks to the document chat backend from a terminal.

Run "chat repl" to hold a conversation, or "chat tail" to watch the
chat events mirrored onto NATS by the REST server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "local-user", "user id sent with every request")

	replCmd.Flags().StringVar(&backendURL, "backend", envOr("CHAT_BACKEND_URL", "http://localhost:8000"), "chat backend base URL")
	replCmd.Flags().StringVarP(&language, "language", "l", "English", "reply language")
	replCmd.Flags().DurationVar(&timeout, "timeout", 120*time.Second, "backend request timeout")

	tailCmd.Flags().StringVar(&natsURL, "nats", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")

	rootCmd.AddCommand(replCmd, tailCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
