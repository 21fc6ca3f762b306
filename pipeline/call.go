package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/tumorpair/mutect2parallel/journal"
	"github.com/tumorpair/mutect2parallel/pathutil"
	"github.com/tumorpair/mutect2parallel/sample"
	"github.com/tumorpair/mutect2parallel/shared"
	"github.com/tumorpair/mutect2parallel/tool"
)

// needsCall reports whether the caller must (re)run for s.
func needsCall(s *sample.Sample) bool {
	switch s.Stage {
	case sample.None, sample.Normal:
		return true
	case sample.Mutect:
		return s.Status != sample.Complete
	}
	return false
}

func (p *Pipeline) slot(samples map[string]*sample.Sample, name, path string) *sample.Sample {
	if s, ok := samples[name]; ok {
		return s
	}
	s := sample.New(name, pathutil.Stem(path))
	s.UnfilteredSuffix = p.Config.Naming.UnfilteredSuffix
	return s
}

// Open creates or resumes the directory of the group described by e.
func (p *Pipeline) Open(e Entry) (*Group, error) {
	dir := filepath.Join(p.Config.OutDir, e.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	j, err := journal.Create(filepath.Join(dir, journal.FileName), pathutil.Stem(e.Normal), e.Normal)
	if err != nil {
		return nil, err
	}
	samples, err := journal.Replay(j.Path, p.Config.Naming.UnfilteredSuffix)
	if err != nil {
		return nil, err
	}
	return &Group{
		ID:      e.ID,
		Dir:     dir,
		A:       p.slot(samples, SlotA, e.A),
		B:       p.slot(samples, SlotB, e.B),
		N:       p.slot(samples, SlotNormal, e.Normal),
		Journal: j,
	}, nil
}

// Call runs the variant caller on both tumors of e against the normal. Tumors
// that already completed the caller are left alone, so calling a manifest
// again only redoes what failed or never finished.
func (p *Pipeline) Call(ctx context.Context, e Entry) bool {
	g, err := p.Open(e)
	if err != nil {
		shared.Warnf("unable to set up %s: %s", e.ID, err)
		return false
	}
	var todo []*sample.Sample
	var bams []string
	for i, s := range []*sample.Sample{g.A, g.B} {
		if needsCall(s) {
			todo = append(todo, s)
			bams = append(bams, []string{e.A, e.B}[i])
		}
	}
	if len(todo) == 0 {
		return true
	}
	normal, _ := p.Tools.AddReadGroups(ctx, e.Normal, g.N.ID, g.Dir)
	if normal == "" {
		shared.Warnf("unable to add read groups to normal %s", e.Normal)
	}

	ok := make([]bool, len(todo))
	var wg sync.WaitGroup
	wg.Add(len(todo))
	for i := range todo {
		go func(i int) {
			defer wg.Done()
			ok[i] = p.call(ctx, g, todo[i], bams[i], normal)
		}(i)
	}
	wg.Wait()
	for _, o := range ok {
		if !o {
			return false
		}
	}
	return true
}

func (p *Pipeline) call(ctx context.Context, g *Group, s *sample.Sample, bam, normal string) bool {
	s.Update(s.Name, s.ID, sample.Mutect, sample.Starting, bam)
	g.record(s)

	out := g.path(s.Name + ".vcf")
	res := tool.Fail("unable to add read groups")
	if normal != "" {
		if tumor, name := p.Tools.AddReadGroups(ctx, bam, s.ID, g.Dir); tumor != "" {
			res = p.Tools.CallVariants(ctx, tool.Call{Tumor: tumor, TumorName: name, Normal: normal, Out: out})
		}
	}
	if res.Success {
		s.UpdateStatus(sample.Complete, sample.None, out, false)
	} else {
		shared.Warnf("mutect %s for %s from %s", res.Kind, s.ID, g.ID)
		s.UpdateStatus(sample.Failed, sample.None, "", false)
	}
	g.record(s)
	return res.Success
}
