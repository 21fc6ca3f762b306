// Package heteranalyzer filters somatic calls by the read support observed at
// the same sites in another alignment: the paired tumor (covb) or the normal
// (nab).
package heteranalyzer

import (
	"bytes"
	"io"
	"strconv"

	arg "github.com/alexflint/go-arg"
	"github.com/biogo/store/interval"
	"github.com/brentp/go-athenaeum/unsplit"
	"github.com/brentp/vcfgo"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/config"
	"github.com/tumorpair/mutect2parallel/shared"
)

// Mode selects the thresholds applied.
type Mode string

const (
	CovB Mode = "covb"
	NAB  Mode = "nab"
)

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case CovB, NAB:
		return m, nil
	}
	return "", errors.Errorf("unknown mode %q: use covb or nab", s)
}

// Thresholds of one filter. A zero value disables the check.
type Thresholds struct {
	MinCov  int
	MaxAlt  int
	MaxProp float64
}

// FromConfig picks the thresholds for mode.
func FromConfig(mode Mode, f config.Filters) Thresholds {
	if mode == NAB {
		return Thresholds{MinCov: f.MinCovN, MaxAlt: f.MaxAltN, MaxProp: f.MaxPropAltN}
	}
	return Thresholds{MinCov: f.MinCovB, MaxAlt: f.MaxAltB, MaxProp: f.MaxPropAltB}
}

// Pass reports whether a site with the given read counts passes t.
func (t Thresholds) Pass(c Coverage) bool {
	if t.MinCov > 0 && c.Depth() < t.MinCov {
		return false
	}
	if t.MaxAlt > 0 && c.Alt > t.MaxAlt {
		return false
	}
	if t.MaxProp > 0 && c.Depth() > 0 && float64(c.Alt)/float64(c.Depth()) > t.MaxProp {
		return false
	}
	return true
}

// Coverage is one row of a coverage table: CHROM POS REF ALT AD.
type Coverage struct {
	Pos int
	Ref int
	Alt int
	UID uintptr
}

func (c Coverage) Depth() int { return c.Ref + c.Alt }

func (c Coverage) Overlap(b interval.IntRange) bool {
	return c.Pos > b.Start && c.Pos-1 < b.End
}
func (c Coverage) ID() uintptr              { return c.UID }
func (c Coverage) Range() interval.IntRange { return interval.IntRange{Start: c.Pos - 1, End: c.Pos} }

// Table holds coverage rows in one interval tree per chromosome.
type Table map[string]*interval.IntTree

// ParseCoverage parses one coverage line. AD is a comma-delimited list of the
// reference depth followed by the depth of each alternate allele.
func ParseCoverage(line []byte) (string, Coverage, error) {
	var c Coverage
	toks := bytes.Split(bytes.TrimRight(line, "\r\n"), []byte{'\t'})
	if len(toks) < 5 {
		return "", c, errors.Errorf("expected 5 columns in coverage line: %q", line)
	}
	var err error
	if c.Pos, err = strconv.Atoi(string(toks[1])); err != nil {
		return "", c, errors.Wrap(err, "bad position")
	}
	ad := unsplit.New(toks[4], []byte{','})
	for i := 0; ; i++ {
		p := ad.Next()
		if p == nil {
			break
		}
		if len(p) == 0 || p[0] == '.' {
			continue
		}
		n, err := strconv.Atoi(string(p))
		if err != nil {
			return "", c, errors.Wrapf(err, "bad allele depth in %q", toks[4])
		}
		if i == 0 {
			c.Ref = n
		} else {
			c.Alt += n
		}
	}
	return string(toks[0]), c, nil
}

// ReadTable loads a coverage table.
func ReadTable(path string) (Table, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening coverage %s", path)
	}
	defer rdr.Close()
	t := make(Table, 24)
	var uid uintptr
	for {
		line, err := rdr.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 && line[0] != '#' {
			chrom, c, perr := ParseCoverage(line)
			if perr != nil {
				return nil, perr
			}
			uid++
			c.UID = uid
			tree, ok := t[chrom]
			if !ok {
				tree = &interval.IntTree{}
				t[chrom] = tree
			}
			if err := tree.Insert(c, true); err != nil {
				return nil, errors.Wrap(err, "error building coverage tree")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", path)
		}
	}
	for _, tree := range t {
		tree.AdjustRanges()
	}
	return t, nil
}

type query struct{ start, end int }

func (q query) Overlap(b interval.IntRange) bool { return q.end > b.Start && q.start < b.End }
func (q query) ID() uintptr                      { return 0 }
func (q query) Range() interval.IntRange         { return interval.IntRange{Start: q.start, End: q.end} }

// Lookup returns the coverage rows at the first base of a variant starting at
// the 0-based position start.
func (t Table) Lookup(chrom string, start int) []Coverage {
	tree := t[chrom]
	if tree == nil {
		return nil
	}
	var out []Coverage
	tree.DoMatching(func(iv interval.IntInterface) bool {
		out = append(out, iv.(Coverage))
		return false
	}, query{start: start, end: start + 1})
	return out
}

// Options of one filtering run.
type Options struct {
	Mode       Mode
	VCF        string
	Coverage   string
	Out        string
	Thresholds Thresholds
}

// Filter writes the variants of VCF whose site passes the thresholds to Out
// and returns how many were kept. Variants without coverage are dropped.
func Filter(o Options) (int, error) {
	table, err := ReadTable(o.Coverage)
	if err != nil {
		return 0, err
	}
	f, err := xopen.Ropen(o.VCF)
	if err != nil {
		return 0, errors.Wrapf(err, "error opening %s", o.VCF)
	}
	defer f.Close()
	rdr, err := vcfgo.NewReader(f, false)
	if err != nil {
		return 0, errors.Wrapf(err, "error reading header of %s", o.VCF)
	}
	w, err := xopen.Wopen(o.Out)
	if err != nil {
		return 0, errors.Wrapf(err, "error creating %s", o.Out)
	}
	out, err := vcfgo.NewWriter(w, rdr.Header)
	if err != nil {
		w.Close()
		return 0, err
	}
	kept := 0
	for {
		v := rdr.Read()
		if v == nil {
			break
		}
		pass := false
		for _, c := range table.Lookup(v.Chromosome, int(v.Start())) {
			if o.Thresholds.Pass(c) {
				pass = true
				break
			}
		}
		if pass {
			out.WriteVariant(v)
			kept++
		}
	}
	if err := rdr.Error(); err != nil {
		shared.Warnf("%s: %s", o.VCF, err)
	}
	return kept, errors.Wrapf(w.Close(), "error closing %s", o.Out)
}

type cliargs struct {
	Mode     string  `arg:"positional,required,help:covb or nab."`
	VCF      string  `arg:"-v,required,help:path to input vcf."`
	Coverage string  `arg:"-i,required,help:coverage table (CHROM POS REF ALT AD)."`
	Out      string  `arg:"-o,required,help:path to output vcf."`
	MinCov   int     `arg:"--min-cov,help:minimum depth at the site."`
	MaxAlt   int     `arg:"--max-alt,help:maximum number of alternate reads."`
	MaxProp  float64 `arg:"--max-prop,help:maximum proportion of alternate reads."`
}

func (c cliargs) Description() string {
	return "filter a vcf by the read support at each site in another alignment"
}

func Main() {
	cli := cliargs{}
	p := arg.MustParse(&cli)
	mode, err := ParseMode(cli.Mode)
	if err != nil {
		p.Fail(err.Error())
	}
	t := FromConfig(mode, config.Default().Filters)
	if cli.MinCov > 0 {
		t.MinCov = cli.MinCov
	}
	if cli.MaxAlt > 0 {
		t.MaxAlt = cli.MaxAlt
	}
	if cli.MaxProp > 0 {
		t.MaxProp = cli.MaxProp
	}
	n, err := Filter(Options{Mode: mode, VCF: cli.VCF, Coverage: cli.Coverage, Out: cli.Out, Thresholds: t})
	if err != nil {
		shared.Fatalf("%s", err)
	}
	shared.Slogger.Printf("kept %d variants from %s", n, cli.VCF)
}
