package tool

import (
	"context"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/brentp/goleft/indexcov"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/pathutil"
	"github.com/tumorpair/mutect2parallel/shared"
)

// HasReadGroup reports whether the header of a BAM declares an @RG.
func HasReadGroup(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrap(err, "error opening bam")
	}
	defer f.Close()
	br, err := bam.NewReader(f, 1)
	if err != nil {
		return false, errors.Wrapf(err, "error reading header of %s", path)
	}
	defer br.Close()
	return len(br.Header().RGs()) > 0, nil
}

// SampleName returns the sample of an alignment, falling back to its file
// name when the header has no read group.
func SampleName(path string) string {
	if ok, err := HasReadGroup(path); err != nil || !ok {
		return pathutil.Stem(path)
	}
	sm, err := indexcov.GetShortName(path, strings.HasSuffix(path, ".cram"))
	if err != nil || sm == "" {
		return pathutil.Stem(path)
	}
	return sm
}

// Index creates a .bai for path unless one exists.
func (s *Shell) Index(ctx context.Context, path string) Result {
	if xopen.Exists(path+".bai") || xopen.Exists(strings.TrimSuffix(path, ".bam")+".bai") {
		return Ok
	}
	return s.Runner.Run(ctx, "samtools-index", "samtools index "+path, "")
}

// AddReadGroups returns bam unchanged if it already has a read group, else
// writes <stem>.withRG.bam into outdir with a synthetic read group for id.
// Both returned strings are empty on failure.
func (s *Shell) AddReadGroups(ctx context.Context, path, id, outdir string) (string, string) {
	ok, err := HasReadGroup(path)
	if err != nil {
		shared.Warnf("%s", err)
		return "", ""
	}
	out := path
	if !ok {
		out = pathutil.Derive(path, outdir, "withRG", ".bam")
		if !xopen.Exists(out) {
			cmd := s.picard() + " AddOrReplaceReadGroups I=" + path + " O=" + out +
				" RGID=" + id + " RGLB=lib1 RGPL=illumina RGPU=unit1 RGSM=" + id
			if res := s.Runner.Run(ctx, "add-read-groups", cmd, ""); !res.Success {
				os.Remove(out)
				return "", ""
			}
		}
	}
	if res := s.Index(ctx, out); !res.Success {
		return "", ""
	}
	name := SampleName(out)
	if !ok && name != id {
		// the header written by picard should name id
		shared.Warnf("read group of %s names %s, expected %s", out, name, id)
	}
	return out, name
}
