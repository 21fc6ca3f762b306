// Package pathutil derives the names of stage artifacts and resolves the
// "maybe gzipped, maybe not" ambiguity of VCF outputs.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

// ErrMissing is returned when neither a path nor its .gz sibling exist.
var ErrMissing = errors.New("file not found")

// Tags are the stage tags that may appear between a stem and its extension.
var Tags = []string{"unfiltered", "noGermline", "covB", "forB", "covN", "nab", "sorted", "withRG"}

// Normalize collapses a repeated .gz suffix.
func Normalize(path string) string {
	for strings.HasSuffix(path, ".gz.gz") {
		path = path[:len(path)-3]
	}
	return path
}

// Resolve returns path if it exists, else its .gz sibling if that exists,
// else the empty string.
func Resolve(path string) string {
	if path == "" {
		return ""
	}
	path = Normalize(path)
	if isFile(path) {
		return path
	}
	if !strings.HasSuffix(path, ".gz") && isFile(path+".gz") {
		return path + ".gz"
	}
	return ""
}

// MustResolve is Resolve with an error for missing files.
func MustResolve(path string) (string, error) {
	if r := Resolve(path); r != "" {
		return r, nil
	}
	return "", errors.Wrap(ErrMissing, path)
}

func isFile(path string) bool {
	if !xopen.Exists(path) {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// Stem returns the file name without directory, compression, extension and
// a trailing stage tag. Periods inside the sample part are kept.
func Stem(path string) string {
	base := filepath.Base(Normalize(path))
	base = strings.TrimSuffix(base, ".gz")
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	for _, t := range Tags {
		if strings.HasSuffix(base, "."+t) {
			return strings.TrimSuffix(base, "."+t)
		}
	}
	return base
}

// Derive names the artifact of a stage: <dir>/<stem>.<tag><ext>.
// If dir is empty the directory of path is used.
func Derive(path, dir, tag, ext string) string {
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return filepath.Join(dir, Stem(path)+"."+tag+ext)
}

// Sibling returns the first existing of <dir>/<stem><suffix> and its .gz
// variant, or the empty string.
func Sibling(path, suffix string) string {
	return Resolve(filepath.Join(filepath.Dir(path), Stem(path)+suffix))
}

// WithSuffix returns path itself when, ignoring compression, it already ends
// in suffix. Otherwise it is Sibling(path, suffix).
func WithSuffix(path, suffix string) string {
	path = Normalize(path)
	if suffix != "" && strings.HasSuffix(strings.TrimSuffix(path, ".gz"), suffix) {
		return path
	}
	return Sibling(path, suffix)
}

// Ext returns the extension of path without the dot, ignoring a .gz suffix.
func Ext(path string) string {
	path = strings.TrimSuffix(Normalize(path), ".gz")
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// IsAlignment reports whether path names an alignment file.
func IsAlignment(path string) bool {
	switch Ext(path) {
	case "bam", "cram", "sam":
		return true
	}
	return false
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
