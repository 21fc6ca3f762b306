package pipeline

import (
	"io"
	"strings"

	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

// Entry is one group of the sample manifest.
type Entry struct {
	ID     string
	Normal string
	A      string
	B      string
}

// split uses a tab or comma if the line has one, else any whitespace.
func split(line string) []string {
	var toks []string
	switch {
	case strings.Contains(line, "\t"):
		toks = strings.Split(line, "\t")
	case strings.Contains(line, ","):
		toks = strings.Split(line, ",")
	default:
		return strings.Fields(line)
	}
	for i, t := range toks {
		toks[i] = strings.TrimSpace(t)
	}
	return toks
}

// Records reads a delimited text file with at least n columns per row.
// Blank lines and lines starting with '#' are skipped, as is a first row
// whose first column is "ID".
func Records(path string, n int) ([][]string, error) {
	rdr, err := xopen.Ropen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	defer rdr.Close()
	var rows [][]string
	for lineno := 1; ; lineno++ {
		line, err := rdr.ReadString('\n')
		if t := strings.TrimSpace(line); t != "" && t[0] != '#' {
			toks := split(t)
			if len(toks) < n {
				return nil, errors.Errorf("%s:%d: expected %d columns, got %d", path, lineno, n, len(toks))
			}
			if !(len(rows) == 0 && strings.EqualFold(toks[0], "id")) {
				rows = append(rows, toks[:n])
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", path)
		}
	}
	return rows, nil
}

// ReadManifest reads the groups of a manifest with columns ID, normal, tumor A
// and tumor B. A group ID may appear only once.
func ReadManifest(path string) ([]Entry, error) {
	rows, err := Records(path, 4)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		if seen[r[0]] {
			return nil, errors.Errorf("group %s is listed more than once in %s", r[0], path)
		}
		seen[r[0]] = true
		entries = append(entries, Entry{ID: r[0], Normal: r[1], A: r[2], B: r[3]})
	}
	return entries, nil
}
