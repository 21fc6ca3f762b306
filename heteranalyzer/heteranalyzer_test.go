package heteranalyzer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tumorpair/mutect2parallel/config"
)

const vcf = `##fileformat=VCFv4.2
##contig=<ID=1,length=1000>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	10	.	A	T	.	PASS	.
1	20	.	C	G	.	PASS	.
1	30	.	G	A	.	PASS	.
1	40	.	T	C	.	PASS	.
`

const coverage = `1	10	A	T,<*>	20,0,0
1	20	C	G	10,0
1	40	T	C	30,12
`

func TestParseCoverage(t *testing.T) {
	chrom, c, err := ParseCoverage([]byte("chr2\t55\tA\tT,<*>\t20,3,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "chr2", chrom)
	assert.Equal(t, 55, c.Pos)
	assert.Equal(t, 20, c.Ref)
	assert.Equal(t, 4, c.Alt)
	assert.Equal(t, 24, c.Depth())

	_, c, err = ParseCoverage([]byte("1\t5\tA\tT\t.\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Depth())

	_, _, err = ParseCoverage([]byte("1\t5\tA\n"))
	assert.Error(t, err)
	_, _, err = ParseCoverage([]byte("1\tx\tA\tT\t1,2\n"))
	assert.Error(t, err)
}

func TestThresholds(t *testing.T) {
	f := config.Default().Filters
	covb := FromConfig(CovB, f)
	assert.Equal(t, 15, covb.MinCov)
	assert.True(t, covb.Pass(Coverage{Ref: 15}))
	assert.False(t, covb.Pass(Coverage{Ref: 14}))
	// zero disables the alt checks
	assert.True(t, covb.Pass(Coverage{Ref: 15, Alt: 5}))

	nab := FromConfig(NAB, f)
	assert.True(t, nab.Pass(Coverage{Ref: 10, Alt: 1}))
	assert.False(t, nab.Pass(Coverage{Ref: 10, Alt: 16}))
	assert.False(t, nab.Pass(Coverage{Ref: 6, Alt: 4}))
	assert.False(t, nab.Pass(Coverage{Ref: 2, Alt: 0}))

	_, err := ParseMode("covn")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	dir, err := ioutil.TempDir("", "heteranalyzer")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "A.vcf")
	cov := filepath.Join(dir, "A.covB.tsv")
	out := filepath.Join(dir, "A.forB.vcf")
	require.NoError(t, ioutil.WriteFile(in, []byte(vcf), 0644))
	require.NoError(t, ioutil.WriteFile(cov, []byte(coverage), 0644))

	table, err := ReadTable(cov)
	require.NoError(t, err)
	assert.Len(t, table.Lookup("1", 9), 1)
	assert.Len(t, table.Lookup("1", 10), 0)
	assert.Len(t, table.Lookup("2", 9), 0)

	n, err := Filter(Options{Mode: CovB, VCF: in, Coverage: cov, Out: out,
		Thresholds: Thresholds{MinCov: 15, MaxAlt: 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	var body []string
	for _, l := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if !strings.HasPrefix(l, "#") {
			body = append(body, l)
		}
	}
	require.Len(t, body, 1)
	assert.True(t, strings.HasPrefix(body[0], "1\t10\t"))
}
