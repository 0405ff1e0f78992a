/*
Copyright © 2024 Jeff Berkowitz

*/
package cmd

import (
	"os"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"
)

var log = logging.MustGetLogger("fontkit")

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fontkit",
	Short: "Host-side tools for the STM32 display board",
	Long: `Fontkit bundles the host tools for the STM32 display board.
"upload" sends a font binary to the board over its USB serial port,
"ports" lists serial devices, "writemd" writes documentation files as
UTF-8 regardless of the host code page, and "convert" rewrites C sources
to GB2312 for the vendor toolchain.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// setupLogging points the fontkit logger at stderr. Progress and status
// stay on stdout; the log carries warnings and, with --verbose, the
// protocol byte chatter.
func setupLogging() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(`%{level:.4s} %{message}`)
	if verbose {
		format = logging.MustStringFormatter(`%{time:15:04:05.000} %{shortfunc} %{level:.4s} %{message}`)
	}
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	if verbose {
		leveled.SetLevel(logging.DEBUG, "")
	} else {
		leveled.SetLevel(logging.INFO, "")
	}
	logging.SetBackend(leveled)
}
