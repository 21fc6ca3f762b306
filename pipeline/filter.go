package pipeline

import (
	"context"
	"io/ioutil"

	"github.com/tumorpair/mutect2parallel/compare"
	"github.com/tumorpair/mutect2parallel/heteranalyzer"
	"github.com/tumorpair/mutect2parallel/journal"
	"github.com/tumorpair/mutect2parallel/sample"
	"github.com/tumorpair/mutect2parallel/shared"
)

// sideFunc runs one stage for s, whose pair is other, and returns the
// artifact it produced.
type sideFunc func(ctx context.Context, g *Group, s, other *sample.Sample) (string, bool)

// reached reports whether s completed stage or moved past it.
func reached(s *sample.Sample, stage sample.Stage) bool {
	return s.Stage > stage || s.Succeeded(stage)
}

// Run drives g from the caller output to the final comparison. Each step is
// gated on the state replayed from the journal, so a group resumes at the
// first step that has not completed. It reports whether every step succeeded.
func (p *Pipeline) Run(ctx context.Context, g *Group) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			shared.Warnf("%s stopped: %v", g.ID, r)
			ok = false
		}
	}()
	return p.each(ctx, g, sample.Mutect, sample.FilteringGermline, p.removeGermline) &&
		p.compare(ctx, g, sample.FilteringGermline, sample.Isec1, p.Unfiltered) &&
		p.each(ctx, g, sample.Isec1, sample.FilteringCovB, p.coverage("covB", otherBam)) &&
		p.each(ctx, g, sample.FilteringCovB, sample.FilteringForB, p.filterCoverage(heteranalyzer.CovB, "forB", "covB")) &&
		p.compare(ctx, g, sample.FilteringForB, sample.Isec2, p.CovB) &&
		p.each(ctx, g, sample.Isec2, sample.FilteringCovN, p.coverage("covN", normalBam)) &&
		p.each(ctx, g, sample.FilteringCovN, sample.FilteringNAB, p.filterCoverage(heteranalyzer.NAB, "nab", "covN")) &&
		p.compare(ctx, g, sample.FilteringNAB, sample.Isec3, p.Filtered)
}

// each runs a per-sample stage for A then B. A side that already reached
// stage is skipped; a side that is not ready fails the step.
func (p *Pipeline) each(ctx context.Context, g *Group, prev, stage sample.Stage, run sideFunc) bool {
	ok := true
	for _, pair := range [][2]*sample.Sample{{g.A, g.B}, {g.B, g.A}} {
		s, other := pair[0], pair[1]
		if reached(s, stage) {
			continue
		}
		if !s.Ready(prev, stage) {
			ok = false
			continue
		}
		s.UpdateStatus(sample.Starting, stage, "", false)
		g.record(s)
		if out, good := run(ctx, g, s, other); good {
			s.UpdateStatus(sample.Complete, sample.None, out, stage == sample.FilteringGermline)
		} else {
			shared.Warnf("%s failed for %s from %s", stage, s.ID, g.ID)
			s.UpdateStatus(sample.Failed, sample.None, "", false)
			ok = false
		}
		g.record(s)
	}
	return ok
}

// compare intersects both sides against the other's unfiltered calls. The
// two sides are recorded together: a failure of either half fails both. The
// summary row is written before the sides are recorded complete, and a
// finished comparison whose row is missing has it written again.
func (p *Pipeline) compare(ctx context.Context, g *Group, prev, stage sample.Stage, summary *journal.CSV) bool {
	var pending []*sample.Sample
	for _, s := range []*sample.Sample{g.A, g.B} {
		if reached(s, stage) {
			continue
		}
		if !s.Ready(prev, stage) {
			return false
		}
		pending = append(pending, s)
	}
	x := compare.Cross{
		A: g.A.Output, AUnfiltered: g.A.Unfiltered,
		B: g.B.Output, BUnfiltered: g.B.Unfiltered,
		DirA:   g.path(g.A.Name + "_" + stage.String()),
		DirB:   g.path(g.B.Name + "_" + stage.String()),
		Common: g.path("common_" + stage.String() + ".vcf"),
	}
	if len(pending) == 0 {
		if err := summarize(g, summary, x.Counts); err != nil {
			shared.Warnf("unable to write the %s summary of %s: %s", stage, g.ID, err)
			return false
		}
		return true
	}
	for _, s := range pending {
		s.UpdateStatus(sample.Starting, stage, "", false)
	}
	g.record(pending...)

	counts, err := x.Run(ctx, p.Tools)
	if err == nil {
		err = summarize(g, summary, func() (compare.Counts, error) { return counts, nil })
	}
	if err != nil {
		shared.Warnf("%s failed for %s: %s", stage, g.ID, err)
		for _, s := range pending {
			s.UpdateStatus(sample.Failed, sample.None, "", false)
		}
		g.record(pending...)
		return false
	}
	for _, s := range pending {
		private := x.PrivateB()
		if s == g.A {
			private = x.PrivateA()
		}
		s.Private = private
		// only the first comparison keeps the compared calls as output
		out := private
		if stage == sample.Isec1 {
			out = ""
		}
		s.UpdateStatus(sample.Complete, sample.None, out, false)
	}
	g.record(pending...)
	return true
}

// summarize appends the row of g to summary unless it is already there.
func summarize(g *Group, summary *journal.CSV, counts func() (compare.Counts, error)) error {
	done, err := summary.Keys(1)
	if err != nil {
		return err
	}
	if done[g.ID] {
		return nil
	}
	c, err := counts()
	if err != nil {
		return err
	}
	return summary.Append(compare.Row(c, g.ID, g.A.ID, g.B.ID))
}

func (p *Pipeline) removeGermline(ctx context.Context, g *Group, s, _ *sample.Sample) (string, bool) {
	n := p.Config.Naming
	unfiltered := g.path(s.Name + "." + n.FilteredCallsTag + ".vcf")
	out := g.path(s.Name + n.UnfilteredSuffix)
	if res := p.Tools.FilterGermline(ctx, s.Output, unfiltered, out); !res.Success {
		return "", false
	}
	if !compare.HasVariants(out) {
		shared.Warnf("no variants left in %s", out)
		return "", false
	}
	return out, true
}

func otherBam(g *Group, other *sample.Sample) string { return other.Bam }

func normalBam(g *Group, _ *sample.Sample) string { return g.N.Bam }

// coverage extracts, from the alignment chosen by bam, the allele depths at
// the private variants of a sample into <slot>.<tag>.tsv. The table is found
// by name; the stage output stays the private VCF it was extracted for.
func (p *Pipeline) coverage(tag string, bam func(*Group, *sample.Sample) string) sideFunc {
	return func(ctx context.Context, g *Group, s, other *sample.Sample) (string, bool) {
		bed := g.path(s.Name + "." + tag + ".bed")
		out := g.path(s.Name + "." + tag + ".tsv")
		n, err := compare.CountVariants(s.Private)
		if err != nil {
			shared.Warnf("%s", err)
			return "", false
		}
		if n == 0 {
			// nothing private, so nothing to look up
			return s.Private, ioutil.WriteFile(out, nil, 0644) == nil
		}
		aln := bam(g, other)
		if aln == "" {
			shared.Warnf("no alignment recorded to compute %s of %s", tag, s.ID)
			return "", false
		}
		if res := p.Tools.VCFToBed(ctx, s.Private, bed); !res.Success {
			return "", false
		}
		s.Bed = bed
		if res := p.Tools.Coverage(ctx, aln, bed, out); !res.Success {
			return "", false
		}
		return s.Private, true
	}
}

func (p *Pipeline) filterCoverage(mode heteranalyzer.Mode, tag, table string) sideFunc {
	return func(ctx context.Context, g *Group, s, _ *sample.Sample) (string, bool) {
		out := g.path(s.Name + "." + tag + ".vcf")
		res := p.Tools.FilterCoverage(ctx, mode, s.Private, g.path(s.Name+"."+table+".tsv"), out)
		return out, res.Success
	}
}
