package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tumorpair/mutect2parallel"
	"github.com/tumorpair/mutect2parallel/call"
	"github.com/tumorpair/mutect2parallel/filter"
	"github.com/tumorpair/mutect2parallel/heteranalyzer"
	"github.com/tumorpair/mutect2parallel/normals"
	"github.com/tumorpair/mutect2parallel/pipelines"
	"github.com/tumorpair/mutect2parallel/shared"
	"github.com/tumorpair/mutect2parallel/status"
	"github.com/tumorpair/mutect2parallel/vcfbed"
	"github.com/valyala/fasttemplate"
)

type progPair struct {
	name string
	help string
	main func()
}

var progs = []progPair{
	{"call", "call somatic variants in both tumors of each group of a manifest", call.Main},
	{"filter", "remove germline and low coverage calls and compare the tumors of each group", filter.Main},
	{"status", "list the samples that did not complete their last step", status.Main},
	{"normals", "intersect normal vcfs to find mislabeled samples", normals.Main},
	{"pipelines", "compare the calls of two pipelines for the same samples", pipelines.Main},
	{"heteranalyzer", "filter a vcf by the read support at each site in another alignment", heteranalyzer.Main},
	{"vcfbed", "write the merged spans of the variants in a vcf as a bed file", vcfbed.Main},
}

func Description() string {
	tmpl := `mutect2parallel version: {{version}}

mutect2parallel calls several programs. Those with 'Y' are found on your $PATH. Only those with '*' are required.

 *[{{gatk}}] gatk [Mutect2, FilterMutectCalls; or set gatk_jar in the config]
 *[{{picard}}] picard [AddOrReplaceReadGroups; or set picard_jar in the config]
 *[{{java}}] java [only required when a jar is configured]
 *[{{samtools}}] samtools [bam and fasta indices]
 *[{{bcftools}}] bcftools [isec, merge, sort, filter, mpileup]
 *[{{bgzip}}] bgzip
 *[{{tabix}}] tabix

Available sub-commands are below. Each can be run with -h for additional help.

`
	t := fasttemplate.New(tmpl, "{{", "}}")

	vars := map[string]interface{}{
		"version":  mutect2parallel.Version,
		"gatk":     shared.HasProg("gatk"),
		"picard":   shared.HasProg("picard"),
		"java":     shared.HasProg("java"),
		"samtools": shared.HasProg("samtools"),
		"bcftools": shared.HasProg("bcftools"),
		"bgzip":    shared.HasProg("bgzip"),
		"tabix":    shared.HasProg("tabix"),
	}
	return t.ExecuteString(vars)
}

func printProgs() {
	var wtr io.Writer = os.Stdout

	fmt.Fprint(wtr, Description())
	l := 5
	for _, p := range progs {
		if len(p.name) > l {
			l = len(p.name)
		}
	}
	fmtr := "%-" + strconv.Itoa(l) + "s : %s\n"

	for _, p := range progs {
		fmt.Fprintf(wtr, fmtr, p.name, p.help)
	}
	os.Exit(1)
}

func get(name string) (*progPair, bool) {
	for i := range progs {
		if progs[i].name == name {
			return &progs[i], true
		}
	}
	return nil, false
}

func main() {
	if len(os.Args) < 2 {
		printProgs()
	}
	p, ok := get(os.Args[1])
	if !ok {
		printProgs()
	}
	// remove the prog name from the call
	os.Args = append(os.Args[:1], os.Args[2:]...)
	shared.Slogger.Printf("starting with version %s", mutect2parallel.Version)
	p.main()
}
