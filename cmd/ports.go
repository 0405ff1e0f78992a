/*
Copyright © 2024 Jeff Berkowitz

*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports on this machine",
	Long: `Ports lists the serial devices present on this machine, one per
line, for finding which port the board enumerated on before an upload.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := serial.GetPortsList()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("no serial ports found")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
