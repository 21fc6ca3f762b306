// Package compare reduces VCF intersections to private/common variant counts
// and a similarity ratio.
package compare

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/brentp/xopen"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/pathutil"
	"github.com/tumorpair/mutect2parallel/tool"
)

// ErrDecode wraps failures to read a (possibly compressed) VCF while counting.
var ErrDecode = errors.New("error decoding vcf")

// Intersector is the subset of the toolkit needed to compare VCFs.
type Intersector interface {
	Compress(ctx context.Context, vcf string) (string, tool.Result)
	Isec(ctx context.Context, a, b, outdir string) tool.Result
	Merge(ctx context.Context, out string, vcfs ...string) tool.Result
}

// Names of the numbered files written by an intersection.
const (
	PrivateFirst  = "0000.vcf"
	PrivateSecond = "0001.vcf"
	CommonFirst   = "0002.vcf"
	CommonSecond  = "0003.vcf"
)

// Counts is the result of one comparison.
type Counts struct {
	PrivateA int
	PrivateB int
	Common   int
}

// Similarity is Common / (PrivateA + PrivateB + Common), or 0 when no variants
// were found at all.
func (c Counts) Similarity() float64 {
	return Similarity(c.PrivateA, c.PrivateB, c.Common)
}

func Similarity(a, b, common int) float64 {
	total := a + b + common
	if total == 0 {
		return 0.0
	}
	return float64(common) / float64(total)
}

// Percent formats a ratio the way the summaries store it, e.g. 50.00%.
func Percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// Row is a summary row: the identifying columns followed by the counts.
func Row(c Counts, ids ...string) []string {
	row := append([]string{}, ids...)
	return append(row, strconv.Itoa(c.PrivateA), strconv.Itoa(c.PrivateB), strconv.Itoa(c.Common), Percent(c.Similarity()))
}

// NARow is written in place of counts when a comparison failed.
func NARow(ids ...string) []string {
	row := append([]string{}, ids...)
	return append(row, "NA", "NA", "NA", "NA")
}

// CountVariants counts the non-header lines of a plain or gzipped VCF. A file
// that cannot be decoded is an error, never a count of 0.
func CountVariants(path string) (int, error) {
	f, err := xopen.Ropen(path)
	if err != nil {
		return 0, errors.Wrapf(ErrDecode, "%s: %v", path, err)
	}
	defer f.Close()
	count := 0
	for {
		line, err := f.ReadBytes('\n')
		if len(line) > 0 && line[0] != '#' && !(len(line) == 1 && line[0] == '\n') {
			count++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.Wrapf(ErrDecode, "%s: %v", path, err)
		}
	}
	return count, nil
}

// HasVariants reports whether path holds at least one variant.
func HasVariants(path string) bool {
	n, err := CountVariants(path)
	return err == nil && n > 0
}

// prepare resolves a VCF to an existing file and makes sure it is compressed
// and indexed.
func prepare(ctx context.Context, t Intersector, vcf string) (string, error) {
	path, err := pathutil.MustResolve(vcf)
	if err != nil {
		return "", err
	}
	out, res := t.Compress(ctx, path)
	if !res.Success {
		return "", errors.Errorf("unable to compress and index %s", path)
	}
	return out, nil
}

// Isec intersects a and b into outdir after normalising both inputs.
func Isec(ctx context.Context, t Intersector, a, b, outdir string) error {
	var err error
	if a, err = prepare(ctx, t, a); err != nil {
		return err
	}
	if b, err = prepare(ctx, t, b); err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(outdir), 0755); err != nil {
		return errors.Wrap(err, "error creating comparison directory")
	}
	if res := t.Isec(ctx, a, b, outdir); !res.Success {
		return errors.Errorf("bcftools isec failed for %s and %s", a, b)
	}
	return nil
}

// Pair intersects two VCFs and counts the private and common variants
// directly from the intersection output.
func Pair(ctx context.Context, t Intersector, a, b, outdir string) (Counts, error) {
	var c Counts
	if err := Isec(ctx, t, a, b, outdir); err != nil {
		return c, err
	}
	var err error
	if c.PrivateA, err = CountVariants(filepath.Join(outdir, PrivateFirst)); err != nil {
		return c, err
	}
	if c.PrivateB, err = CountVariants(filepath.Join(outdir, PrivateSecond)); err != nil {
		return c, err
	}
	c.Common, err = CountVariants(filepath.Join(outdir, CommonFirst))
	return c, err
}

// Cross describes the two-way comparison of a tumor pair: each side's
// filtered calls are intersected with the other side's unfiltered calls.
type Cross struct {
	A, AUnfiltered string
	B, BUnfiltered string
	DirA, DirB     string
	// Common is the merged common-variant VCF.
	Common string
}

// PrivateA is the VCF of variants found only in A.
func (x Cross) PrivateA() string { return filepath.Join(x.DirA, PrivateFirst) }

// PrivateB is the VCF of variants found only in B.
func (x Cross) PrivateB() string { return filepath.Join(x.DirB, PrivateFirst) }

// Run performs both intersections and merges their common variants. A failure
// of either half fails the whole comparison.
func (x Cross) Run(ctx context.Context, t Intersector) (Counts, error) {
	var c Counts
	if err := Isec(ctx, t, x.A, x.BUnfiltered, x.DirA); err != nil {
		return c, errors.Wrap(err, "comparing A")
	}
	if err := Isec(ctx, t, x.B, x.AUnfiltered, x.DirB); err != nil {
		return c, errors.Wrap(err, "comparing B")
	}
	var commons []string
	for _, dir := range []string{x.DirA, x.DirB} {
		p, err := prepare(ctx, t, filepath.Join(dir, CommonFirst))
		if err != nil {
			return c, err
		}
		commons = append(commons, p)
	}
	if res := t.Merge(ctx, x.Common, commons...); !res.Success {
		return c, errors.Errorf("unable to merge common variants into %s", x.Common)
	}
	return x.Counts()
}

// Counts reads the private and merged common variant counts from the output
// of a finished comparison.
func (x Cross) Counts() (Counts, error) {
	var c Counts
	var err error
	if c.PrivateA, err = CountVariants(x.PrivateA()); err != nil {
		return c, err
	}
	if c.PrivateB, err = CountVariants(x.PrivateB()); err != nil {
		return c, err
	}
	c.Common, err = CountVariants(x.Common)
	return c, err
}
