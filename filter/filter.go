// Package filter resumes every called group under the output directory and
// runs it through germline removal, coverage filtering and the pairwise
// comparisons.
package filter

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"github.com/brentp/go-athenaeum/tempclean"
	"github.com/tumorpair/mutect2parallel/config"
	"github.com/tumorpair/mutect2parallel/pipeline"
	"github.com/tumorpair/mutect2parallel/shared"
	"github.com/tumorpair/mutect2parallel/tool"
)

type cliargs struct {
	Config    string `arg:"-c,required,help:path to config (toml)."`
	Processes int    `arg:"-p,help:number of groups to filter in parallel."`
}

func (c cliargs) Description() string {
	return "filter and compare the calls of every group that is not yet finished"
}

func Main() {
	cli := cliargs{Processes: runtime.GOMAXPROCS(0)}
	arg.MustParse(&cli)
	cfg, err := config.Load(cli.Config)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	if _, err := tool.CheckReference(cfg.Reference); err != nil {
		shared.Fatalf("%s", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, tool.NewShell(cfg))
	groups, err := p.Groups()
	if err != nil {
		shared.Fatalf("%s", err)
	}
	if len(groups) == 0 {
		shared.Slogger.Printf("no groups left to filter in %s", cfg.OutDir)
		return
	}
	failed := p.RunAll(ctx, groups, cli.Processes)
	tempclean.Cleanup()
	if failed > 0 {
		shared.Slogger.Printf("[Error] %d of %d groups failed. Run again to retry them.", failed, len(groups))
		os.Exit(1)
	}
}
