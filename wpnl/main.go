// Command wpnl reports the PnL of a trading wallet.
//
// Shell completion is installed with:
//
//	COMP_INSTALL=1 wpnl
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/etnz/pnl/cmd"
	"github.com/etnz/pnl/config"
	"github.com/etnz/pnl/docs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(int(subcommands.ExitUsageError))
	}

	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander, cfg)

	completion().Complete(name)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	common := func(extra map[string]complete.Predictor) map[string]complete.Predictor {
		flags := map[string]complete.Predictor{
			"wallet":      predict.Something,
			"blacklist":   predict.Something,
			"currency":    predict.Set{"SOL", "ETH", "BNB"},
			"method":      predict.Set{"fifo", "average"},
			"events":      predict.Files("*.jsonl"),
			"db":          predict.Something,
			"redis":       predict.Something,
			"price-url":   predict.Something,
			"parallelism": predict.Something,
		}
		for k, v := range extra {
			flags[k] = v
		}
		return flags
	}
	window := common(map[string]complete.Predictor{
		"d":    predict.Set{"0d", "-1d", "-1w"},
		"json": predict.Nothing,
	})
	weekly := common(map[string]complete.Predictor{
		"d":      predict.Set{"0d", "-1w", "-2w"},
		"json":   predict.Nothing,
		"series": predict.Nothing,
	})

	topics, _ := docs.GetAllTopics()

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"plain": predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"report": {Flags: common(map[string]complete.Predictor{
				"offline":     predict.Nothing,
				"json":        predict.Nothing,
				"skip-closed": predict.Nothing,
				"full":        predict.Nothing,
				"stats":       predict.Nothing,
				"w":           predict.Something,
			})},
			"daily":  {Flags: window},
			"weekly": {Flags: weekly},
			"import": {Flags: common(nil), Args: predict.Files("*.jsonl")},
			"serve": {Flags: common(map[string]complete.Predictor{
				"addr":     predict.Something,
				"interval": predict.Set{"30s", "1m", "5m"},
			})},
			"assist": {Flags: common(map[string]complete.Predictor{"offline": predict.Nothing})},
			"topic":  {Flags: map[string]complete.Predictor{"l": predict.Nothing}, Args: predict.Set(append(topics, "*"))},
			"help":   {},
		},
	}
}
