package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"google.golang.org/genai"

	"github.com/etnz/pnl/agent"
	"github.com/etnz/pnl/config"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	cfg     *config.Config
	offline bool
}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "start an interactive session with the AI assistant" }
func (*assistCmd) Usage() string {
	return `wpnl assist [<question>]

  Start an interactive session with the AI assistant, asking question first.
  The Gemini client reads its API key from GEMINI_API_KEY.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	c.cfg.RegisterFlags(f)
	f.BoolVar(&c.offline, "offline", false, "do not fetch prices")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := newPipeline(ctx, c.cfg, !c.offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer p.Close()

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return fail("cannot initialize Gemini's client: %v", err)
	}

	a := agent.New(os.Stdout, os.Stdin, agent.NewAccountant(p.source), agent.NewTrader())
	if !*plain {
		a.Render = renderMarkdown
	}
	if err := a.Run(ctx, client, strings.Join(f.Args(), " ")); err != nil {
		return fail("agent failed: %v", err)
	}
	return subcommands.ExitSuccess
}
