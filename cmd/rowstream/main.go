// Command rowstream converts row-oriented data between formats:
// CSV, TSV, JSON, NDJSON, BSON, Avro, Arrow IPC and MessagePack, with
// optional compression and S3 or GCS locations on either side.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "github.com/ajitpratap0/rowstream/pkg/codec/all"
	"github.com/ajitpratap0/rowstream/pkg/errors"
	"github.com/ajitpratap0/rowstream/pkg/logger"
)

var version = "0.1.0"

// envPrefix namespaces environment overrides, e.g. ROWSTREAM_MAX_ROWS.
const envPrefix = "ROWSTREAM"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rowstream",
		Short: "rowstream - streaming row format converter",
		Long: `rowstream streams rows from one format into another without loading the
whole input into memory. Inputs and outputs may be local paths, "-" for
stdin/stdout, or s3:// and gs:// URIs, optionally compressed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newFormatsCmd())
	root.AddCommand(newConvertCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rowstream v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// newViper returns a viper instance reading ROWSTREAM_* variables, with
// dashes in flag names mapped to underscores.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flags")
	}
	return v, nil
}
