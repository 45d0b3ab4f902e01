// Package cmd implements the wpnl command line application.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/etnz/pnl/config"
	"github.com/etnz/pnl/date"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var plain = flag.Bool("plain", false, "print raw markdown instead of rendering it for the terminal")

// Register the subcommands sharing the configuration cfg.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander, cfg *config.Config) {
	c.Register(&reportCmd{cfg: cfg}, "reports")
	c.Register(&windowCmd{cfg: cfg, period: date.Daily}, "reports")
	c.Register(&windowCmd{cfg: cfg, period: date.Weekly}, "reports")

	c.Register(&importCmd{cfg: cfg}, "events")

	c.Register(&serveCmd{cfg: cfg}, "live")
	c.Register(&assistCmd{cfg: cfg}, "live")

	c.Register(&topicCmd{}, "help")
}

// printMarkdown renders md for the terminal, or prints it as is with -plain.
func printMarkdown(md string) {
	if *plain {
		fmt.Print(md)
		return
	}
	fmt.Print(renderMarkdown(md))
}

func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// fail prints err and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
