package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

func PrintRight(text string) {
	// Get terminal width.
	width, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		width = 80
	}

	padding := width - len(text)
	if padding < 0 {
		padding = 0
	}

	fmt.Fprintf(os.Stderr, "\r%s%s", spaces(padding), text)
}

func spaces(n int) string {
	return fmt.Sprintf("%*s", n, "")
}

func ProgressBar(percent int, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent * width) / 100
	return fmt.Sprintf("%s%s",
		strings.Repeat("█", filled),
		strings.Repeat(" ", width-filled),
	)
}
