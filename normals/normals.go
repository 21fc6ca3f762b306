// Package normals checks sample identity by intersecting normal VCFs with each
// other, or one VCF with every normal. Comparisons already in the summary are
// skipped so an interrupted run picks up where it stopped.
package normals

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
const FileName = "normalsComparison.csv"

// Header of the summary.
var Header = []string{"Type", "SampleA", "SampleB", "#PrivateA", "#PrivateB", "#Common", "%Similarity"}

// Comparison types.
const (
	AllPairs = "normals"
	Sample   = "sample"
)

// Pair is one comparison.
type Pair struct {
	Type string
	A, B string
}

func (p Pair) key() string {
	return journal.Key(p.Type, pathutil.Stem(p.A), pathutil.Stem(p.B))
}

// Pairs lists every pair of normals, or vcf against each normal if vcf is
// set.
func Pairs(normals []string, vcf string) []Pair {
	var pairs []Pair
	if vcf != "" {
		for _, n := range normals {
			pairs = append(pairs, Pair{Type: Sample, A: vcf, B: n})
		}
		return pairs
	}
	for i := 0; i < len(normals); i++ {
		for j := i + 1; j < len(normals); j++ {
			pairs = append(pairs, Pair{Type: AllPairs, A: normals[i], B: normals[j]})
		}
	}
	return pairs
}

// Options of one run.
type Options struct {
	Normals   []string
	VCF       string
	OutDir    string
	Processes int
}

// Run performs every comparison not yet in the summary and returns the
// number that failed.
func Run(ctx context.Context, t compare.Intersector, o Options) (int, error) {
	summary := journal.NewCSV(filepath.Join(o.OutDir, FileName), Header)
	done, err := summary.Keys(3)
	if err != nil {
		return 0, err
	}
	var todo []Pair
	var ids []string
	for _, p := range Pairs(o.Normals, o.VCF) {
		if k := p.key(); !done[k] {
			todo = append(todo, p)
			ids = append(ids, k)
		}
	}
	shared.Slogger.Printf("%d comparisons to run, %d already done", len(todo), len(done))
	if len(todo) == 0 {
		return 0, nil
	}

	// compress each input once so workers never race on the same index.
	inputs := append([]string{o.VCF}, o.Normals...)
	prepared := make(map[string]string, len(inputs))
	for _, in := range inputs {
		if in == "" {
			continue
		}
		path, err := pathutil.MustResolve(in)
		if err != nil {
			return 0, err
		}
		gz, res := t.Compress(ctx, path)
		if !res.Success {
			return 0, errors.Errorf("unable to compress and index %s", path)
		}
		prepared[in] = gz
	}

	remaining, failed := len(todo), 0
	for res := range pipeline.Dispatch(o.Processes, ids, func(i int) bool {
		p := todo[i]
		a, b := pathutil.Stem(p.A), pathutil.Stem(p.B)
		counts, err := compare.Pair(ctx, t, prepared[p.A], prepared[p.B], filepath.Join(o.OutDir, p.Type, a+"_"+b))
		if err != nil {
			shared.Warnf("%s", err)
			return false
		}
		if err := summary.Append(compare.Row(counts, p.Type, a, b)); err != nil {
			shared.Warnf("%s", err)
			return false
		}
		return true
	}) {
		remaining--
		if res.OK {
			shared.Slogger.Printf("Comparison %s successful. %d remaining.", res.ID, remaining)
		} else {
			failed++
			shared.Warnf("Comparison %s failed.", res.ID)
		}
	}
	return failed, nil
}

type cliargs struct {
	Config    string `arg:"-c,required,help:path to config (toml)."`
	VCF       string `arg:"-i,help:compare this vcf to every normal instead of comparing normals to each other."`
	Processes int    `arg:"-p,help:number of comparisons to run in parallel."`
	Manifest  string `arg:"positional,required,help:file with one normal vcf per line."`
}

func (c cliargs) Description() string {
	return "intersect normal vcfs to find mislabeled samples"
}

func Main() {
	cli := cliargs{Processes: runtime.GOMAXPROCS(0)}
	arg.MustParse(&cli)
	cfg, err := config.Load(cli.Config)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	rows, err := pipeline.Records(cli.Manifest, 1)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	normals := make([]string, len(rows))
	for i, r := range rows {
		normals[i] = r[0]
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := Run(ctx, tool.NewShell(cfg), Options{Normals: normals, VCF: cli.VCF, OutDir: cfg.OutDir, Processes: cli.Processes})
	tempclean.Cleanup()
	if err != nil {
		shared.Fatalf("%s", err)
	}
	if failed > 0 {
		shared.Slogger.Printf("[Error] %d comparisons failed", failed)
		os.Exit(1)
	}
}
