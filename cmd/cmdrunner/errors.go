package main

import (
	"fmt"
	"io"
	"sort"

	"cmdrunner/internal/errors"

	"github.com/charmbracelet/lipgloss"
)

// exitError carries the final status of a run out of cobra. It is not
// printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// printError writes err and its details to w, coloured when w is a terminal.
func printError(w io.Writer, err error) {
	r := lipgloss.NewRenderer(w)
	label := r.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	key := r.NewStyle().Faint(true)

	prefix := "Error:"
	if errors.IsConfigError(err) {
		prefix = "Configuration error:"
	}
	fmt.Fprintf(w, "%s %s\n", label.Render(prefix), err.Error())

	details := errors.GetErrorDetails(err)
	names := make([]string, 0, len(details))
	for k := range details {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "  %s %v\n", key.Render(k+":"), details[k])
	}
}

