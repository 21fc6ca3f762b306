// Package pipelines compares the calls of two independent pipelines for the
// same samples.
package pipelines

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"github.com/brentp/go-athenaeum/tempclean"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/compare"
	"github.com/tumorpair/mutect2parallel/config"
	"github.com/tumorpair/mutect2parallel/journal"
	"github.com/tumorpair/mutect2parallel/pathutil"
	"github.com/tumorpair/mutect2parallel/pipeline"
	"github.com/tumorpair/mutect2parallel/shared"
	"github.com/tumorpair/mutect2parallel/tool"
)

// FileName is the summary written under the output directory.
const FileName = "comparisonSummary.csv"

// Header of the summary.
var Header = []string{"ID", "Comparison", "Mutect(A)", "Platypus(B)", "#PrivateA", "#PrivateB", "#Common", "%Similarity"}

// Tools is what a comparison needs from the toolkit.
type Tools interface {
	compare.Intersector
	Sort(ctx context.Context, in, out string) tool.Result
}

// Comparison is one row of the manifest.
type Comparison struct {
	ID   string
	Name string
	VCF1 string
	VCF2 string
}

// ReadManifest reads rows of ID, comparison name and the two VCFs.
func ReadManifest(path string) ([]Comparison, error) {
	rows, err := pipeline.Records(path, 4)
	if err != nil {
		return nil, err
	}
	cs := make([]Comparison, len(rows))
	for i, r := range rows {
		cs[i] = Comparison{ID: r[0], Name: r[1], VCF1: r[2], VCF2: r[3]}
	}
	return cs, nil
}

// sortInto writes a sorted copy of vcf into dir.
func sortInto(ctx context.Context, t Tools, vcf, dir, name string) (string, error) {
	in, err := pathutil.MustResolve(vcf)
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, name+".sorted.vcf")
	if res := t.Sort(ctx, in, out); !res.Success {
		return "", errors.Errorf("unable to sort %s", in)
	}
	return out, nil
}

// Compare sorts both VCFs of c and intersects them under outdir.
func Compare(ctx context.Context, t Tools, c Comparison, outdir string) (compare.Counts, error) {
	dir := filepath.Join(outdir, c.ID, c.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return compare.Counts{}, errors.Wrap(err, "error creating comparison directory")
	}
	a, err := sortInto(ctx, t, c.VCF1, dir, "A")
	if err != nil {
		return compare.Counts{}, err
	}
	b, err := sortInto(ctx, t, c.VCF2, dir, "B")
	if err != nil {
		return compare.Counts{}, err
	}
	return compare.Pair(ctx, t, a, b, filepath.Join(dir, "isec"))
}

// Run performs every comparison and appends one row per comparison to the
// summary, with NA counts for those that failed. It returns the number that
// failed.
func Run(ctx context.Context, t Tools, cs []Comparison, outdir string, procs int) int {
	summary := journal.NewCSV(filepath.Join(outdir, FileName), Header)
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID + ":" + c.Name
	}
	failed := 0
	for res := range pipeline.Dispatch(procs, ids, func(i int) bool {
		c := cs[i]
		names := []string{c.ID, c.Name, pathutil.Stem(c.VCF1), pathutil.Stem(c.VCF2)}
		counts, err := Compare(ctx, t, c, outdir)
		row := compare.Row(counts, names...)
		if err != nil {
			shared.Warnf("comparison %s of %s failed: %s", c.Name, c.ID, err)
			row = compare.NARow(names...)
		}
		if aerr := summary.Append(row); aerr != nil {
			shared.Warnf("%s", aerr)
		}
		return err == nil
	}) {
		if !res.OK {
			failed++
		}
	}
	return failed
}

type cliargs struct {
	Config    string `arg:"-c,required,help:path to config (toml)."`
	Processes int    `arg:"-p,help:number of comparisons to run in parallel."`
	Manifest  string `arg:"positional,required,help:csv with columns ID, Comparison, VCF1 and VCF2."`
}

func (c cliargs) Description() string {
	return "compare the calls of two pipelines for the same samples"
}

func Main() {
	cli := cliargs{Processes: runtime.GOMAXPROCS(0)}
	arg.MustParse(&cli)
	cfg, err := config.Load(cli.Config)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	cs, err := ReadManifest(cli.Manifest)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := Run(ctx, tool.NewShell(cfg), cs, cfg.OutDir, cli.Processes)
	tempclean.Cleanup()
	shared.Slogger.Printf("wrote %d comparisons to %s", len(cs), filepath.Join(cfg.OutDir, FileName))
	if failed > 0 {
		shared.Slogger.Printf("[Error] %d comparisons failed", failed)
		os.Exit(1)
	}
}
