package vcfbed

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	ivs := []Interval{
		{"2", 5, 6},
		{"1", 30, 31},
		{"1", 9, 10},
		{"1", 10, 13},
		{"1", 11, 12},
		{"2", 1, 2},
	}
	assert.Equal(t, []Interval{
		{"2", 1, 2},
		{"2", 5, 6},
		{"1", 9, 13},
		{"1", 30, 31},
	}, Merge(ivs))
	assert.Nil(t, Merge(nil))
}

func TestConvert(t *testing.T) {
	dir, err := ioutil.TempDir("", "vcfbed")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	vcf := filepath.Join(dir, "0000.vcf")
	require.NoError(t, ioutil.WriteFile(vcf, []byte(`##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	10	.	A	T	.	PASS	.
1	11	.	CAG	C	.	PASS	.
1	100	.	G	A	.	PASS	.
`), 0644))
	bed := filepath.Join(dir, "0000.bed")
	n, err := Convert(vcf, bed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	b, err := ioutil.ReadFile(bed)
	require.NoError(t, err)
	assert.Equal(t, "1\t9\t13\n1\t99\t100\n", string(b))
}
