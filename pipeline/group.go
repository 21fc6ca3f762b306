// Package pipeline drives the samples of each tumor pair through the calling
// and filtering stages, recording every transition in the group journal so a
// later invocation resumes where the last one stopped.
package pipeline

import (
	"io/ioutil"
	"path/filepath"
	"sort"

	"github.com/brentp/xopen"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/config"
	"github.com/tumorpair/mutect2parallel/journal"
	"github.com/tumorpair/mutect2parallel/sample"
	"github.com/tumorpair/mutect2parallel/shared"
	"github.com/tumorpair/mutect2parallel/tool"
)

// Slot names of the samples of a group.
const (
	SlotA      = "A"
	SlotB      = "B"
	SlotNormal = "N"
)

// Group is a tumor pair and its normal, resumed from the group journal.
type Group struct {
	ID      string
	Dir     string
	A, B, N *sample.Sample
	Journal *journal.Journal
}

func (g *Group) path(name string) string {
	return filepath.Join(g.Dir, name)
}

// record appends the current state of each sample to the journal. A failed
// write is logged: the in-memory state is still used for the rest of the run.
func (g *Group) record(samples ...*sample.Sample) {
	for _, s := range samples {
		if err := g.Journal.Append(s); err != nil {
			shared.Warnf("%s", err)
		}
	}
}

// Validate makes sure A, B and N are present and both tumors completed the
// caller.
func (g *Group) Validate() error {
	if g.A == nil || g.B == nil || g.N == nil {
		return errors.Errorf("%s is missing a sample (need A, B and N)", g.ID)
	}
	if err := g.A.CheckStatus(g.ID); err != nil {
		return err
	}
	return g.B.CheckStatus(g.ID)
}

// Pipeline holds what every group of a run shares: the read-only config, the
// collaborators and the summary logs.
type Pipeline struct {
	Config *config.Config
	Tools  tool.Toolkit

	Unfiltered *journal.CSV
	CovB       *journal.CSV
	Filtered   *journal.CSV
}

// New returns a Pipeline writing its summaries under cfg.OutDir.
func New(cfg *config.Config, t tool.Toolkit) *Pipeline {
	return &Pipeline{
		Config:     cfg,
		Tools:      t,
		Unfiltered: journal.NewCSV(filepath.Join(cfg.OutDir, journal.UnfilteredSummary), journal.SummaryHeader),
		CovB:       journal.NewCSV(filepath.Join(cfg.OutDir, journal.CovBSummary), journal.SummaryHeader),
		Filtered:   journal.NewCSV(filepath.Join(cfg.OutDir, journal.FilteredSummary), journal.SummaryHeader),
	}
}

// Load replays the journal of the group directory dir.
func (p *Pipeline) Load(dir string) (*Group, error) {
	j, err := journal.Open(filepath.Join(dir, journal.FileName))
	if err != nil {
		return nil, err
	}
	samples, err := journal.Replay(j.Path, p.Config.Naming.UnfilteredSuffix)
	if err != nil {
		return nil, err
	}
	return &Group{
		ID:      filepath.Base(dir),
		Dir:     dir,
		A:       samples[SlotA],
		B:       samples[SlotB],
		N:       samples[SlotNormal],
		Journal: j,
	}, nil
}

// Scan returns the group directories under root that have a journal and whose
// ID is not in finished.
func Scan(root string, finished map[string]bool) ([]string, error) {
	infos, err := ioutil.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", root)
	}
	var dirs []string
	for _, fi := range infos {
		if !fi.IsDir() || finished[fi.Name()] {
			continue
		}
		dir := filepath.Join(root, fi.Name())
		if xopen.Exists(filepath.Join(dir, journal.FileName)) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Groups loads and validates every unfinished group under the output
// directory. Groups that cannot be processed are logged and skipped.
func (p *Pipeline) Groups() ([]*Group, error) {
	finished, err := p.Filtered.Keys(1)
	if err != nil {
		return nil, err
	}
	dirs, err := Scan(p.Config.OutDir, finished)
	if err != nil {
		return nil, err
	}
	groups := make([]*Group, 0, len(dirs))
	for _, dir := range dirs {
		g, err := p.Load(dir)
		if err != nil {
			shared.Warnf("skipping %s: %s", dir, err)
			continue
		}
		if err := g.Validate(); err != nil {
			shared.Warnf("skipping %s: %s", g.ID, err)
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}
