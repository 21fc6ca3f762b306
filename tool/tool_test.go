package tool

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tumorpair/mutect2parallel/config"
)

const gatkOK = `Using GATK jar /opt/gatk.jar
12:00:00.000 INFO  Mutect2 - Done initializing engine
Tool returned:
SUCCESS
`

func TestGATKStatus(t *testing.T) {
	assert.True(t, GATKStatus(gatkOK))
	assert.False(t, GATKStatus("Tool returned:\nFAILURE\n"))
	assert.False(t, GATKStatus("all done\n"))
	assert.False(t, GATKStatus("Tool returned:\n"))
	assert.False(t, GATKStatus(""))
}

func TestResultAnd(t *testing.T) {
	r := Result{Success: true, Kind: Succeeded}
	r = r.And(GATKStatus("Tool returned:\nfalse\n"), "no SUCCESS")
	assert.False(t, r.Success)
	assert.Equal(t, Failed, r.Kind)
	assert.Contains(t, r.Log, "no SUCCESS")

	// an already failed result keeps its kind
	r = Result{Kind: TimedOut}.And(false, "x")
	assert.Equal(t, TimedOut, r.Kind)
}

func TestRunner(t *testing.T) {
	dir, err := ioutil.TempDir("", "tool")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	r := &Runner{}
	log := filepath.Join(dir, "echo.stdout")
	res := r.Run(context.Background(), "echo", "echo hello; echo world >&2", log)
	assert.True(t, res.Success)
	assert.Equal(t, Succeeded, res.Kind)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Contains(t, res.Log, "hello")
	b, err := ioutil.ReadFile(log)
	require.NoError(t, err)
	assert.Contains(t, string(b), "world")

	res = r.Run(context.Background(), "fail", "false; echo unreachable", "")
	assert.False(t, res.Success)
	assert.Equal(t, Failed, res.Kind)
	assert.Equal(t, 1, res.ExitStatus)
	assert.NotContains(t, res.Log, "unreachable")

	// pipefail
	res = r.Run(context.Background(), "pipe", "false | cat", "")
	assert.False(t, res.Success)
}

func TestRunnerTimeout(t *testing.T) {
	r := &Runner{Timeout: 100 * time.Millisecond}
	start := time.Now()
	res := r.Run(context.Background(), "sleep", "sleep 5", "")
	assert.False(t, res.Success)
	assert.Equal(t, TimedOut, res.Kind)
	assert.True(t, time.Since(start) < 4*time.Second)
}

func testShell(t *testing.T) *Shell {
	cfg := config.Default()
	cfg.Commands.Bgzip = "cp {{in}} {{out}}"
	cfg.Commands.Tabix = "touch {{in}}.tbi"
	return NewShell(&cfg)
}

func TestCompress(t *testing.T) {
	dir, err := ioutil.TempDir("", "tool")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	s := testShell(t)

	vcf := filepath.Join(dir, "A.vcf")
	require.NoError(t, ioutil.WriteFile(vcf, []byte("##x\n1\t1\t.\tA\tC\n"), 0644))

	gz, res := s.Compress(context.Background(), vcf)
	require.True(t, res.Success)
	assert.Equal(t, vcf+".gz", gz)
	assert.FileExists(t, gz+".tbi")

	// an up to date index is reused
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(vcf, old, old))
	require.NoError(t, os.Chtimes(gz, old, old))
	s.Config.Commands.Tabix = "exit 3"
	gz, res = s.Compress(context.Background(), gz+".gz")
	assert.True(t, res.Success)
	assert.Equal(t, vcf+".gz", gz)

	// a stale one is not
	require.NoError(t, os.Chtimes(gz, time.Now().Add(time.Hour), time.Now().Add(time.Hour)))
	_, res = s.Compress(context.Background(), gz)
	assert.False(t, res.Success)
}

func TestDict(t *testing.T) {
	assert.Equal(t, "/ref/hg38.dict", Dict("/ref/hg38.fa"))
	assert.Equal(t, "/ref/hg38.dict", Dict("/ref/hg38.fasta"))
	assert.Equal(t, "/ref/hg38.dict", Dict("/ref/hg38.fa.gz"))
}

func TestReferenceCommands(t *testing.T) {
	dir, err := ioutil.TempDir("", "tool")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	ref := filepath.Join(dir, "ref.fa")
	require.NoError(t, ioutil.WriteFile(ref, []byte(">chr1\nACGTACGT\n>chr2\nGGCC\n"), 0644))
	cfg := config.Default()
	cfg.Reference = ref
	assert.Len(t, ReferenceCommands(&cfg), 2)

	require.NoError(t, ioutil.WriteFile(ref+".fai", []byte("chr1\t8\t6\t8\t9\nchr2\t4\t21\t4\t5\n"), 0644))
	require.NoError(t, ioutil.WriteFile(Dict(ref), []byte("@HD\n"), 0644))
	assert.Len(t, ReferenceCommands(&cfg), 0)

	n, err := CheckReference(ref)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	recs, err := Contigs(ref)
	require.NoError(t, err)
	assert.Equal(t, "chr1", recs[0].Name)
	assert.Equal(t, 4, recs[1].Length)
}
