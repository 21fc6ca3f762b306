// Package vcfbed converts the variants of a VCF to merged BED intervals used
// to restrict coverage extraction.
package vcfbed

import (
	"fmt"
	"os"
	"sort"

	arg "github.com/alexflint/go-arg"
	"github.com/brentp/vcfgo"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/shared"
)

// Interval is a 0-based, half-open span.
type Interval struct {
	Chrom      string
	Start, End int
}

func (i Interval) String() string {
	return fmt.Sprintf("%s\t%d\t%d", i.Chrom, i.Start, i.End)
}

// Merge sorts intervals and joins those that overlap or touch. Chromosomes
// keep the order in which they were first seen.
func Merge(ivs []Interval) []Interval {
	order := make(map[string]int)
	for _, iv := range ivs {
		if _, ok := order[iv.Chrom]; !ok {
			order[iv.Chrom] = len(order)
		}
	}
	sort.SliceStable(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if a.Chrom != b.Chrom {
			return order[a.Chrom] < order[b.Chrom]
		}
		return a.Start < b.Start
	})
	var out []Interval
	for _, iv := range ivs {
		if n := len(out); n > 0 && out[n-1].Chrom == iv.Chrom && iv.Start <= out[n-1].End {
			if iv.End > out[n-1].End {
				out[n-1].End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Read returns the span of every variant in path.
func Read(path string) ([]Interval, error) {
	f, err := xopen.Ropen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	defer f.Close()
	rdr, err := vcfgo.NewReader(f, true)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading header of %s", path)
	}
	var ivs []Interval
	for {
		v := rdr.Read()
		if v == nil {
			break
		}
		ivs = append(ivs, Interval{Chrom: v.Chromosome, Start: int(v.Start()), End: int(v.End())})
	}
	if err := rdr.Error(); err != nil {
		shared.Warnf("%s: %s", path, err)
	}
	return ivs, nil
}

// Convert writes the merged intervals of vcf to bed and returns their number.
func Convert(vcf, bed string) (int, error) {
	ivs, err := Read(vcf)
	if err != nil {
		return 0, err
	}
	ivs = Merge(ivs)
	w, err := xopen.Wopen(bed)
	if err != nil {
		return 0, errors.Wrapf(err, "error creating %s", bed)
	}
	for _, iv := range ivs {
		fmt.Fprintln(w, iv.String())
	}
	return len(ivs), errors.Wrapf(w.Close(), "error writing %s", bed)
}

type cliargs struct {
	VCF string `arg:"positional,required,help:path to vcf."`
	Out string `arg:"-o,help:output bed (default stdout)."`
}

func (c cliargs) Description() string {
	return "write the merged spans of the variants in a vcf as a bed file"
}

func Main() {
	cli := cliargs{Out: "-"}
	arg.MustParse(&cli)
	if cli.Out == "-" {
		ivs, err := Read(cli.VCF)
		if err != nil {
			shared.Fatalf("%s", err)
		}
		for _, iv := range Merge(ivs) {
			fmt.Fprintln(os.Stdout, iv.String())
		}
		return
	}
	n, err := Convert(cli.VCF, cli.Out)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	shared.Slogger.Printf("wrote %d intervals to %s", n, cli.Out)
}
