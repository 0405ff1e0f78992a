/*
Copyright © 2024 Jeff Berkowitz

*/
package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/fontkit/pkg/mdwrite"
)

// writemdCmd represents the writemd command
var writemdCmd = &cobra.Command{
	Use:   "writemd file [content...]",
	Short: "Write a Markdown file as UTF-8 without a BOM",
	Long: `Writemd writes documentation files with an explicit UTF-8
encoding so they survive Windows hosts whose default code page is GBK.
Content comes from the remaining arguments, joined with newlines, or
from standard input when only the file is named. The write is verified
by reading the file back.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var content []byte
		if len(args) > 1 {
			content = []byte(strings.Join(args[1:], "\n"))
		} else {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			content = b
		}
		return mdwrite.Write(args[0], content)
	},
}

func init() {
	rootCmd.AddCommand(writemdCmd)
}
