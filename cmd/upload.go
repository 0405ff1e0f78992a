/*
Copyright © 2024 Jeff Berkowitz

*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gmofishsauce/fontkit/pkg/proto"
	"github.com/gmofishsauce/fontkit/pkg/stm32"
	"github.com/gmofishsauce/fontkit/pkg/uploader"
)

// Defaults for a board cabled the usual way. All are overridable with
// positional arguments; the baud rate must match the board firmware.
const (
	defaultPort     = "COM4"
	defaultBaudRate = 115200
	chineseFontFile = "chinese16x16.bin"
	asciiFontFile   = "ASCII16.bin"
)

var asciiSlot bool

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload [port] [fontfile] [baudrate]",
	Short: "Send a font binary to the display board",
	Long: `Upload transfers a font file to the display board over its USB
serial port using the START/DATA/END exchange the firmware implements.
The board stores the file in its SPI flash font filesystem. With no
arguments the board is expected on ` + defaultPort + ` at 115200 baud and the
file is ` + chineseFontFile + ` from the current or executable directory.
Power the board before running; a transfer that dies partway must be
run again from the start.`,
	Args: cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		err := runUpload(args)
		if err != nil {
			log.Errorf("%v", err)
			fmt.Println("\nUpload failed!")
		} else {
			fmt.Println("\nUpload completed successfully!")
		}
		pause()
		if err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVar(&asciiSlot, "ascii", false,
		"upload to the ASCII font slot (default file "+asciiFontFile+")")
}

func runUpload(args []string) error {
	port := defaultPort
	baudRate := defaultBaudRate
	fontFile := chineseFontFile
	trigger := proto.TriggerChinese
	if asciiSlot {
		fontFile = asciiFontFile
		trigger = proto.TriggerASCII
	}

	if len(args) >= 1 {
		port = args[0]
	}
	if len(args) >= 2 {
		fontFile = args[1]
	}
	if len(args) >= 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return errors.Errorf("bad baud rate %q", args[2])
		}
		baudRate = n
	}

	fontFile = resolveFontFile(fontFile)
	info, err := os.Stat(fontFile)
	if err != nil {
		return errors.Wrap(err, "font file")
	}
	size := info.Size()
	log.Infof("font file: %s", fontFile)
	log.Infof("file size: %d bytes (%.2f KB)", size, float64(size)/1024)

	src, err := os.Open(fontFile)
	if err != nil {
		return errors.Wrap(err, "font file")
	}
	defer src.Close()

	board, err := stm32.Open(port, baudRate)
	if err != nil {
		return err
	}
	defer board.Close()
	log.Infof("connected to %s at %d baud", board.Device(), board.BaudRate())

	session, err := uploader.New(board,
		uploader.WithTrigger(trigger),
		uploader.WithProgress(printProgress),
	)
	if err != nil {
		return err
	}

	sent, err := session.Send(src, size)
	if err != nil {
		if sent > 0 {
			fmt.Println()
		}
		return err
	}
	fmt.Println()
	log.Infof("transfer complete: %d bytes acknowledged", sent)
	return nil
}

// printProgress redraws one status line as the board acks chunks.
func printProgress(sent, total int64) {
	pct := 100 * float64(sent) / float64(total)
	fmt.Printf("\rprogress: %d/%d bytes (%.1f%%)", sent, total, pct)
}

// resolveFontFile tries the path as given, then beside the executable.
// The tool usually ships in the project's Tools folder next to the font
// binaries and gets double-clicked from anywhere.
func resolveFontFile(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return path
	}
	beside := filepath.Join(filepath.Dir(exe), path)
	if _, err := os.Stat(beside); err == nil {
		log.Infof("using %s from the executable directory", filepath.Base(path))
		return beside
	}
	return path
}
