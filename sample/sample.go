// Package sample tracks the pipeline stage reached by one tumor or normal
// sample of a comparison.
package sample

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/pathutil"
)

// Stage is a named step of the pipeline.
type Stage int

const (
	None Stage = iota
	Normal
	Mutect
	FilteringGermline
	Isec1
	FilteringCovB
	FilteringForB
	Isec2
	FilteringCovN
	FilteringNAB
	Isec3
)

var stageNames = [...]string{
	None:              "",
	Normal:            "normal",
	Mutect:            "mutect",
	FilteringGermline: "filtering_germline",
	Isec1:             "isec1",
	FilteringCovB:     "filtering_covB",
	FilteringForB:     "filtering_forB",
	Isec2:             "isec2",
	FilteringCovN:     "filtering_covN",
	FilteringNAB:      "filtering_NAB",
	Isec3:             "isec3",
}

func (s Stage) String() string {
	if s < None || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// IsIsec reports whether s is one of the pairwise comparison stages.
func (s Stage) IsIsec() bool {
	return s == Isec1 || s == Isec2 || s == Isec3
}

// Stages lists every stage after None in pipeline order.
func Stages() []Stage {
	out := make([]Stage, 0, len(stageNames)-1)
	for i := Normal; i <= Isec3; i++ {
		out = append(out, i)
	}
	return out
}

// ParseStage returns the Stage written as s in a journal.
func ParseStage(s string) (Stage, error) {
	for i, n := range stageNames {
		if n == s {
			return Stage(i), nil
		}
	}
	return None, errors.Errorf("unknown stage: %q", s)
}

type Status string

const (
	Starting Status = "starting"
	Complete Status = "complete"
	Failed   Status = "failed"
)

// ParseStatus returns the Status written as s in a journal.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case Starting, Complete, Failed:
		return st, nil
	}
	return "", errors.Errorf("unknown status: %q", s)
}

// DefaultUnfilteredSuffix names the germline-filtered artifact that is
// compared against the other tumor's calls.
const DefaultUnfilteredSuffix = ".noGermline.vcf"

// Sample is the tracked state of one slot (A, B or N) of a comparison.
type Sample struct {
	Name       string
	ID         string
	Stage      Stage
	Status     Status
	Output     string
	Private    string
	Bed        string
	Bam        string
	Input      string
	Unfiltered string

	// UnfilteredSuffix overrides DefaultUnfilteredSuffix. It is not persisted.
	UnfilteredSuffix string
}

// New returns an empty record for the given slot.
func New(name, id string) *Sample {
	return &Sample{Name: name, ID: id}
}

func (s *Sample) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", s.Name)
	fmt.Fprintf(&b, "ID: %s\n", s.ID)
	fmt.Fprintf(&b, "Step: %s\n", s.Stage)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	fmt.Fprintf(&b, "Output VCF: %s\n", s.Output)
	fmt.Fprintf(&b, "Private Variants: %s\n", s.Private)
	fmt.Fprintf(&b, "Bed File: %s\n", s.Bed)
	fmt.Fprintf(&b, "Source Bam File: %s\n", s.Bam)
	fmt.Fprintf(&b, "Input: %s\n", s.Input)
	fmt.Fprintf(&b, "Unfiltered VCF: %s\n", s.Unfiltered)
	return b.String()
}

func (s *Sample) suffix() string {
	if s.UnfilteredSuffix != "" {
		return s.UnfilteredSuffix
	}
	return DefaultUnfilteredSuffix
}

// supersedes reports whether an update to stage may overwrite the record.
// Each forward step is listed explicitly; anything else is stale.
func (s *Sample) supersedes(stage Stage) bool {
	switch {
	case s.Stage == None:
		return true
	case stage == s.Stage:
		return s.Status != Complete
	case stage == Isec3:
		return true
	case stage == FilteringNAB:
		return s.Stage != Isec3
	case stage == FilteringCovN:
		return s.Stage == Isec2
	case stage == Isec2:
		return s.Stage == FilteringForB
	case stage == FilteringForB:
		return s.Stage == FilteringCovB
	case stage == FilteringCovB:
		return s.Stage == Isec1
	case stage == Isec1:
		return s.Stage == FilteringGermline
	case stage == FilteringGermline:
		return s.Stage == Mutect
	case stage == Mutect:
		return s.Stage == Normal
	}
	return false
}

// Update merges one journal transition into the record and reports whether
// it was accepted. Stale transitions leave the record untouched, which makes
// replaying a journal idempotent.
func (s *Sample) Update(name, id string, stage Stage, status Status, outfile string) bool {
	if s.Name == "" {
		s.Name = name
	}
	if s.ID == "" {
		s.ID = id
	}
	if pathutil.IsAlignment(outfile) {
		s.Bam = outfile
	}
	if !s.supersedes(stage) {
		return false
	}
	s.Stage = stage
	s.Status = status
	switch {
	case status == Starting:
		// a starting line names the input of the stage, not an artifact
		if stage == Mutect {
			s.Input = outfile
		}
	case stage == Isec1:
		s.Private = outfile
	default:
		s.Output = outfile
		if stage.IsIsec() && status == Complete {
			s.Private = outfile
		}
	}
	if stage == FilteringGermline && status == Complete && outfile != "" {
		if unf := pathutil.WithSuffix(outfile, s.suffix()); unf != "" {
			s.Unfiltered = unf
		}
	}
	return true
}

// UpdateStatus sets Status without rank arbitration. A None stage or empty
// outfile leaves the corresponding field unchanged. When unfiltered is set,
// outfile is also recorded as the Unfiltered artifact.
func (s *Sample) UpdateStatus(status Status, stage Stage, outfile string, unfiltered bool) {
	s.Status = status
	if stage != None {
		s.Stage = stage
	}
	if outfile != "" {
		s.Output = outfile
		if pathutil.IsAlignment(outfile) {
			s.Bam = outfile
		}
		if unfiltered {
			s.Unfiltered = outfile
		}
	}
}

// Succeeded reports whether the record completed stage.
func (s *Sample) Succeeded(stage Stage) bool {
	return s.Stage == stage && s.Status == Complete
}

// Ready reports whether the step producing stage may run: either the previous
// stage completed or stage itself was entered but not completed.
func (s *Sample) Ready(prev, stage Stage) bool {
	return s.Succeeded(prev) || (s.Stage == stage && s.Status != Complete)
}

// CheckStatus makes sure filtering can proceed from the caller output. A
// missing Output whose .gz sibling exists is corrected in place.
func (s *Sample) CheckStatus(group string) error {
	switch s.Stage {
	case None, Normal:
		return errors.Errorf("%s from %s has not been run through mutect", s.ID, group)
	case Mutect:
		if s.Status != Complete {
			return errors.Errorf("%s from %s has not successfully completed mutect", s.ID, group)
		}
	}
	out, err := pathutil.MustResolve(s.Output)
	if err != nil {
		return errors.Wrapf(err, "cannot find output of %s from %s", s.ID, group)
	}
	s.Output = out
	return nil
}

// LogPath is the path written to the journal for the current state: the
// input for a starting caller run, the private variants of the first
// comparison and the output otherwise. Replaying the line with Update
// reproduces the record.
func (s *Sample) LogPath() string {
	switch {
	case s.Stage == Mutect && s.Status == Starting:
		return s.Input
	case s.Stage == Isec1:
		return s.Private
	}
	return s.Output
}
