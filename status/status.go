// Package status reports the samples whose resumed state is not complete.
package status

import (
	"io"
	"os"
	"path/filepath"

	arg "github.com/alexflint/go-arg"
	"github.com/grailbio/base/tsv"
	"github.com/tumorpair/mutect2parallel/journal"
	"github.com/tumorpair/mutect2parallel/pipeline"
	"github.com/tumorpair/mutect2parallel/sample"
	"github.com/tumorpair/mutect2parallel/shared"
)

// Report replays every group journal under root and writes one line per
// sample that has not completed its current stage. It returns the number of
// such samples.
func Report(root, suffix string, w io.Writer) (int, error) {
	dirs, err := pipeline.Scan(root, nil)
	if err != nil {
		return 0, err
	}
	out := tsv.NewWriter(w)
	n := 0
	for _, dir := range dirs {
		samples, err := journal.Replay(filepath.Join(dir, journal.FileName), suffix)
		if err != nil {
			shared.Warnf("%s", err)
			continue
		}
		for _, slot := range []string{pipeline.SlotA, pipeline.SlotB} {
			s, ok := samples[slot]
			if !ok {
				s = sample.New(slot, "")
			} else if s.Status == sample.Complete {
				continue
			}
			out.WriteString(filepath.Base(dir))
			out.WriteString(slot)
			out.WriteString(s.ID)
			out.WriteString(s.Stage.String())
			out.WriteString(string(s.Status))
			out.WriteString(s.LogPath())
			if err := out.EndLine(); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, out.Flush()
}

type cliargs struct {
	Suffix string `arg:"--unfiltered-suffix,help:suffix of the germline filtered vcf."`
	OutDir string `arg:"positional,required,help:output directory of mutect2parallel."`
}

func (c cliargs) Description() string {
	return "list the samples of every group that did not complete their last step"
}

func Main() {
	cli := cliargs{Suffix: sample.DefaultUnfilteredSuffix}
	arg.MustParse(&cli)
	n, err := Report(cli.OutDir, cli.Suffix, os.Stdout)
	if err != nil {
		shared.Fatalf("%s", err)
	}
	shared.Slogger.Printf("%d samples have not completed", n)
}
