/*
Copyright © 2024 Jeff Berkowitz

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/fontkit/pkg/gbconv"
)

var convertYes bool

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert [dir]",
	Short: "Rewrite UTF-8 C sources as GB2312 in place",
	Long: `Convert walks a directory tree (default: the current directory)
for .c and .h files that are encoded UTF-8 and rewrites them as GB2312
for the vendor toolchain. Files already readable as GB2312 and pure
ASCII files are left alone. The candidates are listed before anything
is touched, and conversion proceeds only after confirmation.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		sum, err := gbconv.Run(root, confirmConversion)
		switch {
		case err != nil:
			log.Errorf("convert: %v", err)
		case sum.Canceled:
			fmt.Println("canceled, nothing converted")
		case sum.Scanned == 0:
			fmt.Println("no files need conversion")
		default:
			fmt.Printf("done: %d found, %d converted, %d failed\n",
				sum.Scanned, sum.Converted, sum.Failed)
		}
		pause()
		if err != nil || sum.Failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().BoolVarP(&convertYes, "yes", "y", false, "convert without asking")
}

func confirmConversion(candidates []gbconv.Candidate) bool {
	fmt.Printf("%d files to convert:\n", len(candidates))
	for _, c := range candidates {
		fmt.Printf("  %s\n", c.Rel)
	}
	if convertYes {
		return true
	}
	return confirm(fmt.Sprintf("rewrite %d files in place? [Y/n] ", len(candidates)))
}
