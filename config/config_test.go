package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, dir, body string) string {
	p := filepath.Join(dir, "config.toml")
	require.NoError(t, ioutil.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	ref := filepath.Join(dir, "ref.fa")
	require.NoError(t, ioutil.WriteFile(ref, []byte(">1\nACGT\n"), 0644))

	p := writeConf(t, dir, `
reference_genome = "`+ref+`"
output_directory = "`+filepath.Join(dir, "out")+`"
timeout = "90m"

[filters]
min_covA = 10
min_reads_strand = 2
max_prop_altN = 0.1
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, c.Timeout.Duration)
	assert.Equal(t, 10, c.Filters.MinCovA)
	// defaults survive
	assert.Equal(t, 15, c.Filters.MinCovB)
	assert.Equal(t, 0.1, c.Filters.MaxPropAltN)
	assert.Equal(t, ".noGermline.vcf", c.Naming.UnfilteredSuffix)
	assert.True(t, strings.HasPrefix(c.Commands.Isec, "bcftools isec"))

	fi, err := os.Stat(c.OutDir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	expr := c.GermlineExpression()
	assert.Contains(t, expr, "germline_risk")
	assert.Contains(t, expr, "FORMAT/DP[*]>=10")
	assert.Contains(t, expr, "FORMAT/F1R2[*]>=2 & FORMAT/F2R1[*]>=2")
	assert.NotContains(t, expr, "QUAL")
}

func TestValidate(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	ref := filepath.Join(dir, "ref.fa")
	require.NoError(t, ioutil.WriteFile(ref, []byte(">1\nACGT\n"), 0644))

	c := Default()
	assert.Error(t, c.Validate(), "missing reference")

	c.Reference = filepath.Join(dir, "nope.fa")
	c.OutDir = dir
	assert.Error(t, c.Validate())

	c.Reference = ref
	assert.NoError(t, c.Validate())

	c.GermlineResource = ref
	assert.Error(t, c.Validate(), "germline without allele frequency")
	c.AlleleFrequency = "0.0000025"
	assert.NoError(t, c.Validate())

	c.Filters.MaxPropAltB = 1.5
	assert.Error(t, c.Validate())
	c.Filters.MaxPropAltB = 0

	c.Timeout.Duration = -time.Second
	assert.Error(t, c.Validate())
}

func TestJava(t *testing.T) {
	assert.Equal(t, "java -jar /opt/gatk.jar", Java("/opt/gatk.jar", "gatk"))
	assert.Equal(t, "gatk", Java("", "gatk"))
}
