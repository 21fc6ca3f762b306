package normals

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
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

type isecStub struct {
	mu       sync.Mutex
	isecs    int
	compress map[string]int
}

func (s *isecStub) Compress(ctx context.Context, vcf string) (string, tool.Result) {
	s.mu.Lock()
	s.compress[vcf]++
	s.mu.Unlock()
	return vcf, tool.Ok
}

func (s *isecStub) Isec(ctx context.Context, a, b, outdir string) tool.Result {
	s.mu.Lock()
	s.isecs++
	s.mu.Unlock()
	for i, name := range []string{compare.PrivateFirst, compare.PrivateSecond, compare.CommonFirst, compare.CommonSecond} {
		if err := writeVCF(filepath.Join(outdir, name), []int{1, 1, 2, 2}[i]); err != nil {
			return tool.Fail(err.Error())
		}
	}
	return tool.Ok
}

func (s *isecStub) Merge(ctx context.Context, out string, vcfs ...string) tool.Result {
	return tool.Fail("not used")
}

func TestPairs(t *testing.T) {
	ns := []string{"a.vcf", "b.vcf", "c.vcf"}
	assert.Equal(t, []Pair{
		{AllPairs, "a.vcf", "b.vcf"},
		{AllPairs, "a.vcf", "c.vcf"},
		{AllPairs, "b.vcf", "c.vcf"},
	}, Pairs(ns, ""))
	assert.Len(t, Pairs(ns, "t.vcf"), 3)
	assert.Equal(t, Sample, Pairs(ns, "t.vcf")[0].Type)
	assert.Len(t, Pairs(ns[:1], ""), 0)
}

func TestRunSkipsFinished(t *testing.T) {
	dir, err := ioutil.TempDir("", "normals")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var ns []string
	for _, n := range []string{"N1", "N2", "N3"} {
		p := filepath.Join(dir, "in", n+".vcf")
		require.NoError(t, writeVCF(p, 3))
		ns = append(ns, p)
	}
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0755))
	summary := journal.NewCSV(filepath.Join(out, FileName), Header)
	require.NoError(t, summary.Append([]string{"normals", "N1", "N2", "1", "1", "2", "50.00%"}))

	st := &isecStub{compress: map[string]int{}}
	failed, err := Run(context.Background(), st, Options{Normals: ns, OutDir: out, Processes: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 2, st.isecs)

	keys, err := summary.Keys(3)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	assert.True(t, keys[journal.Key("normals", "N2", "N3")])

	// everything is done now
	failed, err = Run(context.Background(), st, Options{Normals: ns, OutDir: out, Processes: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 2, st.isecs)

	_, err = Run(context.Background(), st, Options{Normals: ns, VCF: filepath.Join(dir, "missing.vcf"), OutDir: out})
	assert.Error(t, err)
}
