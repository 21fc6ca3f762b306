package journal

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

// Summary file names under the output root.
const (
	UnfilteredSummary = "summary_Unfiltered.csv"
	CovBSummary       = "summary_CovB.csv"
	FilteredSummary   = "summary_Filtered.csv"
)

// SummaryHeader is the header of the per-stage comparison summaries.
var SummaryHeader = []string{"ID", "SampleA", "SampleB", "#PrivateA", "#PrivateB", "#Common", "%Similarity"}

// CSV is an append-only, comma-delimited log. Rows are written whole under a
// lock so one CSV may be shared by every worker of a run.
type CSV struct {
	Path   string
	Header []string
	mu     sync.Mutex
}

// NewCSV returns a CSV at path that is created with header on first append.
func NewCSV(path string, header []string) *CSV {
	return &CSV{Path: path, Header: header}
}

// Append writes one row.
func (c *CSV) Append(row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var lines []string
	if !xopen.Exists(c.Path) && len(c.Header) > 0 {
		lines = append(lines, strings.Join(c.Header, ","))
	}
	lines = append(lines, strings.Join(row, ","))
	f, err := os.OpenFile(c.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "error opening %s", c.Path)
	}
	if _, err = f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		f.Close()
		return errors.Wrapf(err, "error writing to %s", c.Path)
	}
	return f.Close()
}

// Rows reads every row after the header. A missing file has no rows.
func (c *CSV) Rows() ([][]string, error) {
	if !xopen.Exists(c.Path) {
		return nil, nil
	}
	rdr, err := xopen.Ropen(c.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", c.Path)
	}
	defer rdr.Close()
	var rows [][]string
	first := len(c.Header) > 0
	for {
		line, err := rdr.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if first {
				first = false
			} else {
				rows = append(rows, strings.Split(line, ","))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, errors.Wrapf(err, "error reading %s", c.Path)
		}
	}
	return rows, nil
}

// Keys returns the set of rows already recorded, keyed by their first n
// columns joined with a comma. It is the finished-set index used to skip
// completed work across invocations.
func (c *CSV) Keys(n int) (map[string]bool, error) {
	rows, err := c.Rows()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(rows))
	for _, r := range rows {
		if len(r) < n {
			continue
		}
		keys[strings.Join(r[:n], ",")] = true
	}
	return keys, nil
}

// Key joins fields the way Keys does.
func Key(fields ...string) string {
	return strings.Join(fields, ",")
}
