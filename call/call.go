// Package call runs the variant caller on every tumor pair of a manifest.
package call

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
	Processes int    `arg:"-p,help:number of groups to call in parallel."`
	Manifest  string `arg:"positional,required,help:manifest with columns ID, normal, tumor A and tumor B."`
}

func (c cliargs) Description() string {
	return "call somatic variants in both tumors of each group against its normal"
}

func Main() {
	cli := cliargs{Processes: runtime.GOMAXPROCS(0)}
	arg.MustParse(&cli)
	cfg, err := config.Load(cli.Config)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	entries, err := pipeline.ReadManifest(cli.Manifest)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	if err := tool.PrepareReference(cfg); err != nil {
		shared.Fatalf("%s", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, tool.NewShell(cfg))
	failed := p.CallAll(ctx, entries, cli.Processes)
	tempclean.Cleanup()
	if failed > 0 {
		shared.Slogger.Printf("[Error] %d of %d groups failed. Run again to retry them.", failed, len(entries))
		os.Exit(1)
	}
	shared.Slogger.Printf("called %d groups into %s", len(entries), cfg.OutDir)
}
