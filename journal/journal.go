// Package journal persists sample progress as an append-only, tab-delimited
// log and rebuilds sample state by replaying it.
package journal

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/brentp/xopen"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/sample"
)

// FileName is the name of the journal inside a group directory.
const FileName = "mutectLog.txt"

// Header is the first line of every journal.
var Header = []string{"Sample", "Name", "Step", "Status", "Output"}

// Entry is one journal line.
type Entry struct {
	Slot   string
	ID     string
	Stage  sample.Stage
	Status sample.Status
	Path   string
}

// EntryOf returns the line recording the current state of s.
func EntryOf(s *sample.Sample) Entry {
	return Entry{Slot: s.Name, ID: s.ID, Stage: s.Stage, Status: s.Status, Path: s.LogPath()}
}

func (e Entry) fields() []string {
	return []string{e.Slot, e.ID, e.Stage.String(), string(e.Status), e.Path}
}

// ParseLine parses one journal line. Lines with the wrong number of fields or
// an unknown stage or status are reported as not ok.
func ParseLine(line string) (e Entry, ok bool) {
	toks := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(toks) != len(Header) {
		return e, false
	}
	stage, err := sample.ParseStage(toks[2])
	if err != nil || stage == sample.None {
		return e, false
	}
	status, err := sample.ParseStatus(toks[3])
	if err != nil {
		return e, false
	}
	return Entry{Slot: toks[0], ID: toks[1], Stage: stage, Status: status, Path: toks[4]}, true
}

// Journal appends entries to one group's log. It is safe for concurrent use
// by the goroutines working on the same group.
type Journal struct {
	Path string
	mu   sync.Mutex
}

// Open returns the journal at path, creating it with a header if it does not
// exist.
func Open(path string) (*Journal, error) {
	j := &Journal{Path: path}
	if xopen.Exists(path) {
		return j, nil
	}
	if err := j.write(Header); err != nil {
		return nil, errors.Wrapf(err, "error creating journal %s", path)
	}
	return j, nil
}

// Create opens the journal at path. A new journal is seeded with a complete
// normal entry so the normal sample is known without being called.
func Create(path, normalID, normalBam string) (*Journal, error) {
	fresh := !xopen.Exists(path)
	j, err := Open(path)
	if err != nil || !fresh {
		return j, err
	}
	return j, j.Write(Entry{Slot: "N", ID: normalID, Stage: sample.Normal, Status: sample.Complete, Path: normalBam})
}

// Write appends e as one line.
func (j *Journal) Write(e Entry) error {
	return errors.Wrapf(j.write(e.fields()), "error writing to %s", j.Path)
}

// Append records the current state of s.
func (j *Journal) Append(s *sample.Sample) error {
	return j.Write(EntryOf(s))
}

func (j *Journal) write(fields []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w := tsv.NewWriter(f)
	for _, field := range fields {
		w.WriteString(field)
	}
	if err := w.EndLine(); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Entries reads every well-formed line after the header.
func Entries(path string) ([]Entry, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening journal %s", path)
	}
	defer rdr.Close()
	return readEntries(rdr.Reader)
}

func readEntries(r *bufio.Reader) ([]Entry, error) {
	var entries []Entry
	first := true
	for {
		line, err := r.ReadString('\n')
		if len(strings.TrimSpace(line)) > 0 {
			if first {
				first = false
			} else if e, ok := ParseLine(line); ok {
				entries = append(entries, e)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, err
		}
	}
	return entries, nil
}

// Replay rebuilds the samples recorded in the journal at path, keyed by slot
// name. Every line is merged with sample.Update so stale lines are ignored.
// suffix is the unfiltered naming convention handed to each sample.
func Replay(path, suffix string) (map[string]*sample.Sample, error) {
	entries, err := Entries(path)
	if err != nil {
		return nil, err
	}
	return Apply(entries, suffix), nil
}

// Apply merges entries into a fresh set of samples.
func Apply(entries []Entry, suffix string) map[string]*sample.Sample {
	samples := make(map[string]*sample.Sample, 3)
	for _, e := range entries {
		s, ok := samples[e.Slot]
		if !ok {
			s = &sample.Sample{UnfilteredSuffix: suffix}
			samples[e.Slot] = s
		}
		s.Update(e.Slot, e.ID, e.Stage, e.Status, e.Path)
	}
	return samples
}
