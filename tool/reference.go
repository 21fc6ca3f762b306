package tool

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/biogo/biogo/io/seqio/fai"
	"github.com/brentp/faidx"
	"github.com/brentp/go-athenaeum/shpool"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
	"github.com/tumorpair/mutect2parallel/config"
	"github.com/tumorpair/mutect2parallel/shared"
)

// Dict is the sequence dictionary expected next to a fasta.
func Dict(ref string) string {
	ext := filepath.Ext(ref)
	if ext == ".gz" {
		ext = filepath.Ext(strings.TrimSuffix(ref, ".gz")) + ".gz"
	}
	return strings.TrimSuffix(ref, ext) + ".dict"
}

// ReferenceCommands lists the commands needed to create any missing fasta
// index, sequence dictionary or panel of normals index.
func ReferenceCommands(cfg *config.Config) []shpool.Process {
	var procs []shpool.Process
	if !xopen.Exists(cfg.Reference + ".fai") {
		procs = append(procs, shpool.Process{Command: "samtools faidx " + cfg.Reference, CPUs: 1, Prefix: "faidx"})
	}
	if dict := Dict(cfg.Reference); !xopen.Exists(dict) {
		cmd := config.Java(cfg.Picard, "picard") + " CreateSequenceDictionary R=" + cfg.Reference + " O=" + dict
		procs = append(procs, shpool.Process{Command: cmd, CPUs: 1, Prefix: "dict"})
	}
	if cfg.PanelOfNormals != "" && !xopen.Exists(cfg.PanelOfNormals+".tbi") && !xopen.Exists(cfg.PanelOfNormals+".idx") {
		cmd := config.Java(cfg.GATK, "gatk") + " IndexFeatureFile -F " + cfg.PanelOfNormals
		procs = append(procs, shpool.Process{Command: cmd, CPUs: 1, Prefix: "pon-index"})
	}
	return procs
}

// PrepareReference creates whatever reference indices are missing and then
// checks that the indexed fasta can be opened.
func PrepareReference(cfg *config.Config) error {
	if procs := ReferenceCommands(cfg); len(procs) > 0 {
		shared.Slogger.Printf("creating %d reference indices", len(procs))
		pool := shpool.New(runtime.GOMAXPROCS(0), nil, &shpool.Options{LogPrefix: shared.Prefix})
		for _, p := range procs {
			pool.Add(p)
		}
		if err := pool.Wait(); err != nil {
			return errors.Wrap(err, "error indexing reference files")
		}
	}
	contigs, err := Contigs(cfg.Reference)
	if err != nil {
		return err
	}
	shared.Slogger.Printf("using reference %s with %d contigs starting with %s", cfg.Reference, len(contigs), contigs[0].Name)
	return nil
}

// Contigs opens the indexed fasta and returns its non-empty sequences in file
// order.
func Contigs(ref string) ([]fai.Record, error) {
	fa, err := faidx.New(ref)
	if err != nil {
		return nil, errors.Wrap(err, "error opening fasta")
	}
	defer fa.Close()
	recs := make([]fai.Record, 0, len(fa.Index))
	for _, r := range fa.Index {
		if r.Length > 0 {
			recs = append(recs, r)
		}
	}
	if len(recs) == 0 {
		return nil, errors.Errorf("no sequences found in %s", ref)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Start < recs[j].Start })
	return recs, nil
}

// CheckReference returns the number of contigs in the indexed fasta.
func CheckReference(ref string) (int, error) {
	recs, err := Contigs(ref)
	return len(recs), err
}
