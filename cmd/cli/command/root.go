package command

// root.go defines the root command for the learnhub CLI application.
// set up the global flags and configuration here.

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8080"

var (
	apiURL  string // Global flag for API server URL
	token   string // session token (jwt), overrides the keyring
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "learnhub",
	Short: "learnhub - LearnHub Command Line Interface",
	Long: `learnhub is a command line client for the LearnHub notification inbox.
It can:
- List notifications, filtered by read state
- Mark notifications as read and dismiss them
- Watch the inbox live while new notifications arrive

Use "learnhub [command] --help" to see all available commands.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("LEARNHUB_API_URL", defaultAPIURL), "API server URL (env LEARNHUB_API_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("LEARNHUB_TOKEN"), "session token, overrides the stored login (env LEARNHUB_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log feed and fetch activity to stderr")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
