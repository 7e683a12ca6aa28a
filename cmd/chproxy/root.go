package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercator-hq/chproxy/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

// DefaultConfigFile is read when present; its absence is not an error.
const DefaultConfigFile = "chproxy.yaml"

// DefaultEnvFile is loaded into the environment when present.
const DefaultEnvFile = ".env"

var rootCmd = &cobra.Command{
	Use:   "chproxy",
	Short: "chproxy - record/replay proxy for ClickHouse",
	Long: `chproxy sits between a ClickHouse client and server.

In RECORD mode HTTP queries are forwarded upstream and every response is kept
in an in-memory transcript. In REPLAY mode queries are answered from the
transcript by n-gram similarity and the upstream is not contacted. Native TCP
connections are forwarded unchanged in both modes.

Running chproxy without a subcommand is the same as "chproxy serve".`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
	RunE:              runServe,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", DefaultEnvFile, "dotenv file loaded before the configuration")

	addServeFlags(rootCmd)
}

// loadEnvFile loads the dotenv file without overriding variables that are
// already set. A missing default file is ignored.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return cli.NewConfigError("env-file", err.Error())
}
