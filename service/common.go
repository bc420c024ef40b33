package service

import (
	"fmt"
	"strings"
)

// Backup directory, a variable so tests can redirect it
var backupDir = "data/backups"

// store names a badger directory managed by the data and cache commands.
type store struct {
	label string
	path  string
}

func (s store) title() string {
	return strings.ToUpper(s.label[:1]) + s.label[1:]
}

// confirm prompts on stdout and reads a y/N answer from stdin.
func confirm(prompt string) bool {
	fmt.Print(prompt + " [y/N] ")
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "Y"
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// positional returns args with flags removed.
func positional(args []string) []string {
	var out []string
	for _, a := range args {
		if !strings.HasPrefix(a, "--") {
			out = append(out, a)
		}
	}
	return out
}
