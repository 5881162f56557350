package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// stdinIsTerminal reports whether stdin is an interactive terminal.
func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

// promptForDirectory asks the user for a path on stdin.
func promptForDirectory() (string, error) {
	fmt.Print("Please input your path:")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading directory from stdin: %w", err)
	}

	dir := strings.TrimSpace(line)
	if dir == "" {
		return "", fmt.Errorf("no directory provided")
	}
	return dir, nil
}
