/*
Copyright © 2024 Jeff Berkowitz

*/
package cmd

// Interactive concessions for double-click-on-Windows use, where the
// console window vanishes the moment the process exits. Both helpers
// are no-ops when stdin is not a terminal, so pipes and CI behave.

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// pause holds the console open until Enter so the final status line
// stays readable.
func pause() {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}
	fmt.Print("\nPress Enter to exit...")
	reader := bufio.NewReader(os.Stdin)
	_, _ = reader.ReadString('\n')
}

// confirm prints prompt and reads one line. Bare Enter, "y" and "yes"
// mean yes; EOF and anything else mean no. Non-interactive runs proceed
// without asking.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "", "y", "yes":
		return true
	}
	return false
}
