package journal

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tumorpair/mutect2parallel/sample"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type JournalTest struct {
	dir string
}

var _ = Suite(&JournalTest{})

func (s *JournalTest) SetUpTest(c *C) {
	s.dir = c.MkDir()
}

func (s *JournalTest) read(c *C, name string) []string {
	b, err := ioutil.ReadFile(filepath.Join(s.dir, name))
	c.Assert(err, IsNil)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func (s *JournalTest) TestCreateSeedsNormal(c *C) {
	path := filepath.Join(s.dir, FileName)
	_, err := Create(path, "NS1", "/data/n.bam")
	c.Assert(err, IsNil)
	// reopening does not seed twice
	_, err = Create(path, "NS1", "/data/n.bam")
	c.Assert(err, IsNil)

	lines := s.read(c, FileName)
	c.Assert(lines, DeepEquals, []string{
		"Sample\tName\tStep\tStatus\tOutput",
		"N\tNS1\tnormal\tcomplete\t/data/n.bam",
	})

	samples, err := Replay(path, "")
	c.Assert(err, IsNil)
	c.Assert(samples, HasLen, 1)
	c.Assert(samples["N"].Bam, Equals, "/data/n.bam")
	c.Assert(samples["N"].Stage, Equals, sample.Normal)
}

func (s *JournalTest) TestAppendReplay(c *C) {
	path := filepath.Join(s.dir, FileName)
	j, err := Create(path, "NS1", "/data/n.bam")
	c.Assert(err, IsNil)

	a := sample.New("A", "S1")
	a.Input = "/data/a.bam"
	a.UpdateStatus(sample.Starting, sample.Mutect, "", false)
	c.Assert(j.Append(a), IsNil)
	a.UpdateStatus(sample.Complete, sample.None, filepath.Join(s.dir, "A.vcf"), false)
	c.Assert(j.Append(a), IsNil)

	lines := s.read(c, FileName)
	c.Assert(lines[2], Equals, "A\tS1\tmutect\tstarting\t/data/a.bam")

	samples, err := Replay(path, "")
	c.Assert(err, IsNil)
	r := samples["A"]
	c.Assert(r.Stage, Equals, sample.Mutect)
	c.Assert(r.Status, Equals, sample.Complete)
	c.Assert(r.Input, Equals, "/data/a.bam")
	c.Assert(r.Bam, Equals, "/data/a.bam")
	c.Assert(r.Output, Equals, filepath.Join(s.dir, "A.vcf"))
}

func (s *JournalTest) TestMalformedLinesSkipped(c *C) {
	path := filepath.Join(s.dir, FileName)
	body := strings.Join([]string{
		"Sample\tName\tStep\tStatus\tOutput",
		"A\tS1\tmutect\tcomplete\t/o/A.vcf",
		"A\tS1\tfiltering_germline\tcomplete",
		"",
		"B\tS2\taddingReadGroups\tfailed\t/o/B.vcf",
		"B\tS2\tmutect\tdone\t/o/B.vcf",
		"B\tS2\tmutect\tcomplete\t/o/B.vcf\textra",
	}, "\n") + "\n"
	c.Assert(ioutil.WriteFile(path, []byte(body), 0644), IsNil)

	samples, err := Replay(path, "")
	c.Assert(err, IsNil)
	c.Assert(samples, HasLen, 1)
	c.Assert(samples["A"].Stage, Equals, sample.Mutect)
}

func (s *JournalTest) TestReplayTwiceIsStable(c *C) {
	path := filepath.Join(s.dir, FileName)
	lines := []string{
		"A\tS1\tmutect\tcomplete\t/o/A.vcf",
		"A\tS1\tfiltering_germline\tstarting\t/o/A.vcf",
		"A\tS1\tfiltering_germline\tcomplete\t/o/A.noGermline.vcf",
		"B\tS2\tmutect\tcomplete\t/o/B.vcf",
		"A\tS1\tisec1\tcomplete\t/o/A_isec1/0000.vcf",
	}
	body := strings.Join(Header, "\t") + "\n" + strings.Join(lines, "\n") + "\n"
	c.Assert(ioutil.WriteFile(path, []byte(body), 0644), IsNil)
	once, err := Replay(path, "")
	c.Assert(err, IsNil)

	// a journal whose lines were all written twice resumes identically
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	c.Assert(err, IsNil)
	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	c.Assert(err, IsNil)
	f.Close()
	twice, err := Replay(path, "")
	c.Assert(err, IsNil)

	c.Assert(twice, DeepEquals, once)
	c.Assert(once["A"].Stage, Equals, sample.Isec1)
	c.Assert(once["A"].Private, Equals, "/o/A_isec1/0000.vcf")
	c.Assert(once["A"].Output, Equals, "/o/A.noGermline.vcf")
}

func (s *JournalTest) TestConcurrentAppends(c *C) {
	j, err := Open(filepath.Join(s.dir, FileName))
	c.Assert(err, IsNil)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(slot string) {
			defer wg.Done()
			errs <- j.Write(Entry{Slot: slot, ID: "S", Stage: sample.Mutect, Status: sample.Starting, Path: "/x.bam"})
		}([]string{"A", "B"}[i%2])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		c.Assert(err, IsNil)
	}
	lines := s.read(c, FileName)
	c.Assert(lines, HasLen, 21)
	for _, l := range lines[1:] {
		_, ok := ParseLine(l)
		c.Assert(ok, Equals, true)
	}
}

func (s *JournalTest) TestSummaryCSV(c *C) {
	csv := NewCSV(filepath.Join(s.dir, FilteredSummary), SummaryHeader)
	keys, err := csv.Keys(1)
	c.Assert(err, IsNil)
	c.Assert(keys, HasLen, 0)

	c.Assert(csv.Append([]string{"P1", "S1", "S2", "5", "5", "10", "50.00%"}), IsNil)
	c.Assert(csv.Append([]string{"P2", "S3", "S4", "0", "0", "0", "0.00%"}), IsNil)

	lines := s.read(c, FilteredSummary)
	c.Assert(lines, HasLen, 3)
	c.Assert(lines[0], Equals, "ID,SampleA,SampleB,#PrivateA,#PrivateB,#Common,%Similarity")

	keys, err = csv.Keys(1)
	c.Assert(err, IsNil)
	c.Assert(keys["P1"], Equals, true)
	c.Assert(keys["P3"], Equals, false)

	keys, err = csv.Keys(3)
	c.Assert(err, IsNil)
	c.Assert(keys[Key("P2", "S3", "S4")], Equals, true)
}
