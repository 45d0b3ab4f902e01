package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/config"
)

// importCmd appends raw transfers to the event store.
type importCmd struct {
	cfg *config.Config
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import raw transfers into the event store" }
func (*importCmd) Usage() string {
	return `wpnl import [-db <url>] [-events <file>] <file.jsonl>...

  Reads raw transfers, one JSON object per line, from the files or from the
  standard input with "-", and appends them to the event store. Transfers
  already stored, identified by their signature and index, are skipped.

  Transfers that would be rejected by the normalizer are still stored, and
  counted in the output.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) { c.cfg.RegisterFlags(f) }

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no file to import")
		return subcommands.ExitUsageError
	}
	p, err := newPipeline(ctx, c.cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer p.Close()

	var raws []pnl.RawTransfer
	for _, name := range f.Args() {
		r, err := decodeFile(name)
		if err != nil {
			return fail("%v", err)
		}
		raws = append(raws, r...)
	}

	added, err := p.store.Append(ctx, raws...)
	if err != nil {
		return fail("cannot store transfers: %v", err)
	}

	_, rejected := p.normalizer.NormalizeAll(raws)
	unrelated := 0
	for _, err := range rejected {
		if errors.Is(err, pnl.ErrUnrelated) {
			unrelated++
		}
	}
	fmt.Printf("Imported %d new transfers out of %d: %d trades, %d unrelated to the wallet, %d rejected\n",
		added, len(raws), len(raws)-len(rejected), unrelated, len(rejected)-unrelated)
	return subcommands.ExitSuccess
}

func decodeFile(name string) ([]pnl.RawTransfer, error) {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	raws, err := pnl.DecodeRawTransfers(r)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", name, err)
	}
	return raws, nil
}
