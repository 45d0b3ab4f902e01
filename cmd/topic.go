package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/etnz/pnl/docs"
)

// topicCmd prints the embedded documentation.
type topicCmd struct {
	list bool
}

func (*topicCmd) Name() string { return "topic" }
func (*topicCmd) Synopsis() string { return "explain how wpnl computes the PnL of a wallet" }
func (*topicCmd) Usage() string {
	return `wpnl topic [-l] [<topic>...]

  Prints documentation topics, like the lot matching rules or the format of
  imported transfers. "*" prints every topic, no topic prints the overview.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "l", false, "only list the topic names")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		topics, err := docs.GetAllTopics()
		if err != nil {
			return fail("cannot list topics: %v", err)
		}
		fmt.Println(strings.Join(topics, "\n"))
		return subcommands.ExitSuccess
	}

	names := f.Args()
	if len(names) == 0 {
		names = []string{"readme"}
	}
	md, err := docs.GetTopics(names...)
	if err != nil {
		return fail("%v, see 'wpnl topic -l'", err)
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}
