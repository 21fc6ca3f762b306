package pipelines

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tumorpair/mutect2parallel/compare"
	"github.com/tumorpair/mutect2parallel/journal"
	"github.com/tumorpair/mutect2parallel/tool"
)

func writeVCF(path string, n int) error {
	var b strings.Builder
	b.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "1\t%d\t.\tA\tT\t.\tPASS\t.\n", i+1)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return ioutil.WriteFile(path, []byte(b.String()), 0644)
}

type tools struct{}

func (tools) Compress(ctx context.Context, vcf string) (string, tool.Result) { return vcf, tool.Ok }

func (tools) Isec(ctx context.Context, a, b, outdir string) tool.Result {
	for i, name := range []string{compare.PrivateFirst, compare.PrivateSecond, compare.CommonFirst, compare.CommonSecond} {
		if err := writeVCF(filepath.Join(outdir, name), []int{5, 5, 10, 10}[i]); err != nil {
			return tool.Fail(err.Error())
		}
	}
	return tool.Ok
}

func (tools) Merge(ctx context.Context, out string, vcfs ...string) tool.Result {
	return tool.Fail("not used")
}

func (tools) Sort(ctx context.Context, in, out string) tool.Result {
	b, err := ioutil.ReadFile(in)
	if err != nil {
		return tool.Fail(err.Error())
	}
	if err := ioutil.WriteFile(out, b, 0644); err != nil {
		return tool.Fail(err.Error())
	}
	return tool.Ok
}

func TestRun(t *testing.T) {
	dir, err := ioutil.TempDir("", "pipelines")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	require.NoError(t, writeVCF(filepath.Join(dir, "P1.mutect.vcf"), 20))
	require.NoError(t, writeVCF(filepath.Join(dir, "P1.platypus.vcf"), 15))
	manifest := filepath.Join(dir, "manifest.csv")
	require.NoError(t, ioutil.WriteFile(manifest, []byte(fmt.Sprintf(
		"ID,Comparison,VCF1,VCF2\nP1,A,%s,%s\nP1,B,%s,%s\n",
		filepath.Join(dir, "P1.mutect.vcf"), filepath.Join(dir, "P1.platypus.vcf"),
		filepath.Join(dir, "P1.mutect.vcf"), filepath.Join(dir, "missing.vcf"))), 0644))

	cs, err := ReadManifest(manifest)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "A", cs[0].Name)

	out := filepath.Join(dir, "out")
	failed := Run(context.Background(), tools{}, cs, out, 2)
	assert.Equal(t, 1, failed)

	rows, err := journal.NewCSV(filepath.Join(out, FileName), Header).Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	sort.Slice(rows, func(i, j int) bool { return rows[i][1] < rows[j][1] })
	assert.Equal(t, []string{"P1", "A", "P1.mutect", "P1.platypus", "5", "5", "10", "50.00%"}, rows[0])
	assert.Equal(t, []string{"P1", "B", "P1.mutect", "missing", "NA", "NA", "NA", "NA"}, rows[1])
}
