package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// stdinConfirmer asks for confirmation on the terminal. Anything other
// than "y" or "yes" declines.
type stdinConfirmer struct{}

func (s *stdinConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
