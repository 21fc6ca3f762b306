package tool

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/brentp/xopen"
	"github.com/tumorpair/mutect2parallel/config"
	"github.com/tumorpair/mutect2parallel/heteranalyzer"
	"github.com/tumorpair/mutect2parallel/pathutil"
	"github.com/tumorpair/mutect2parallel/vcfbed"
	"github.com/valyala/fasttemplate"
)

// Call is one variant-calling run of a tumor against its normal.
type Call struct {
	Tumor     string
	TumorName string
	Normal    string
	Out       string
}

// Toolkit is every collaborator the pipeline drives. Shell is the real one;
// tests substitute stubs.
type Toolkit interface {
	CallVariants(ctx context.Context, c Call) Result
	// AddReadGroups returns an alignment carrying a read group and the sample
	// name read back from it, or two empty strings on failure.
	AddReadGroups(ctx context.Context, bam, id, outdir string) (string, string)
	// FilterGermline runs FilterMutectCalls into unfiltered, then removes
	// germline risks and low support calls into out.
	FilterGermline(ctx context.Context, in, unfiltered, out string) Result
	VCFToBed(ctx context.Context, vcf, bed string) Result
	Coverage(ctx context.Context, bam, bed, out string) Result
	FilterCoverage(ctx context.Context, mode heteranalyzer.Mode, vcf, coverage, out string) Result
	Isec(ctx context.Context, a, b, outdir string) Result
	Merge(ctx context.Context, out string, vcfs ...string) Result
	Sort(ctx context.Context, in, out string) Result
	Compress(ctx context.Context, vcf string) (string, Result)
}

// Shell runs the collaborators as shell commands built from the configured
// templates.
type Shell struct {
	Config *config.Config
	Runner *Runner
}

// NewShell returns a Shell using the timeout of cfg.
func NewShell(cfg *config.Config) *Shell {
	return &Shell{Config: cfg, Runner: &Runner{Timeout: cfg.Timeout.Duration}}
}

func render(tmpl string, vars map[string]interface{}) string {
	return fasttemplate.ExecuteString(tmpl, "{{", "}}", vars)
}

func (s *Shell) gatk() string {
	return config.Java(s.Config.GATK, "gatk")
}

func (s *Shell) picard() string {
	return config.Java(s.Config.Picard, "picard")
}

func stdout(out string) string {
	return strings.TrimSuffix(strings.TrimSuffix(out, ".gz"), ".vcf") + ".stdout"
}

func vcfFormat(out string) string {
	if strings.HasSuffix(out, ".gz") {
		return "z"
	}
	return "v"
}

func (s *Shell) CallVariants(ctx context.Context, c Call) Result {
	cfg := s.Config
	var b strings.Builder
	b.WriteString(s.gatk() + " Mutect2 -RF AllowAllReadsReadFilter -R " + cfg.Reference)
	b.WriteString(" --tumor-sample " + c.TumorName + " -I " + c.Tumor + " -I " + c.Normal + " --output " + c.Out)
	if cfg.Bamout {
		b.WriteString(" --bamout " + pathutil.Derive(c.Out, "", "Mutect2", ".bam"))
	}
	if cfg.PanelOfNormals != "" {
		b.WriteString(" --panel-of-normals " + cfg.PanelOfNormals)
	}
	if cfg.GermlineResource != "" {
		b.WriteString(" --germline-resource " + cfg.GermlineResource + " --af-of-alleles-not-in-resource " + cfg.AlleleFrequency)
	}
	if cfg.Intervals != "" {
		b.WriteString(" -L " + cfg.Intervals)
	}
	if cfg.MutectOptions != "" {
		b.WriteString(" " + cfg.MutectOptions)
	}
	res := s.Runner.Run(ctx, "mutect", b.String(), stdout(c.Out))
	res = res.And(GATKStatus(res.Log), "Mutect2 did not report SUCCESS")
	if res.Success {
		// the index is not used downstream
		os.Remove(c.Out + ".idx")
	}
	return res
}

func (s *Shell) FilterGermline(ctx context.Context, in, unfiltered, out string) Result {
	cmd := s.gatk() + " FilterMutectCalls -R " + s.Config.Reference + " -V " + in + " -O " + unfiltered
	res := s.Runner.Run(ctx, "filter-mutect-calls", cmd, stdout(unfiltered))
	if res = res.And(GATKStatus(res.Log), "FilterMutectCalls did not report SUCCESS"); !res.Success {
		return res
	}
	cmd = render(s.Config.Commands.Filter, map[string]interface{}{
		"fmt":  vcfFormat(out),
		"out":  out,
		"expr": s.Config.GermlineExpression(),
		"in":   unfiltered,
	})
	return s.Runner.Run(ctx, "bcftools-filter", cmd, "")
}

func (s *Shell) VCFToBed(ctx context.Context, vcf, bed string) Result {
	n, err := vcfbed.Convert(vcf, bed)
	if err != nil {
		return Fail(err.Error())
	}
	if n == 0 {
		return Fail("no intervals in " + vcf)
	}
	return Ok
}

func (s *Shell) Coverage(ctx context.Context, bam, bed, out string) Result {
	cmd := render(s.Config.Commands.Coverage, map[string]interface{}{
		"ref": s.Config.Reference,
		"bed": bed,
		"bam": bam,
		"out": out,
	})
	return s.Runner.Run(ctx, "coverage", cmd, "")
}

func (s *Shell) FilterCoverage(ctx context.Context, mode heteranalyzer.Mode, vcf, coverage, out string) Result {
	if err := ctx.Err(); err != nil {
		return Fail(err.Error())
	}
	kept, err := heteranalyzer.Filter(heteranalyzer.Options{
		Mode:       mode,
		VCF:        vcf,
		Coverage:   coverage,
		Out:        out,
		Thresholds: heteranalyzer.FromConfig(mode, s.Config.Filters),
	})
	if err != nil {
		return Fail(err.Error())
	}
	return Result{Success: true, Kind: Succeeded, Log: "kept " + strconv.Itoa(kept) + " variants\n"}
}

func (s *Shell) Isec(ctx context.Context, a, b, outdir string) Result {
	cmd := render(s.Config.Commands.Isec, map[string]interface{}{"a": a, "b": b, "out": outdir})
	return s.Runner.Run(ctx, "isec", cmd, "")
}

func (s *Shell) Merge(ctx context.Context, out string, vcfs ...string) Result {
	cmd := render(s.Config.Commands.Merge, map[string]interface{}{"out": out, "in": strings.Join(vcfs, " ")})
	return s.Runner.Run(ctx, "merge", cmd, "")
}

func (s *Shell) Sort(ctx context.Context, in, out string) Result {
	cmd := render(s.Config.Commands.Sort, map[string]interface{}{"fmt": vcfFormat(out), "out": out, "in": in})
	return s.Runner.Run(ctx, "sort", cmd, "")
}

// Compress bgzips and tabix-indexes vcf, reusing an existing index that is
// newer than its input.
func (s *Shell) Compress(ctx context.Context, vcf string) (string, Result) {
	vcf = pathutil.Normalize(vcf)
	gz := vcf
	if !strings.HasSuffix(vcf, ".gz") {
		gz = vcf + ".gz"
	}
	if gz != vcf && (!xopen.Exists(gz) || newer(vcf, gz)) {
		cmd := render(s.Config.Commands.Bgzip, map[string]interface{}{"in": vcf, "out": gz})
		if res := s.Runner.Run(ctx, "bgzip", cmd, ""); !res.Success {
			return "", res
		}
	}
	if xopen.Exists(gz+".tbi") && !newer(gz, gz+".tbi") {
		return gz, Ok
	}
	cmd := render(s.Config.Commands.Tabix, map[string]interface{}{"in": gz})
	res := s.Runner.Run(ctx, "tabix", cmd, "")
	if !res.Success {
		return "", res
	}
	return gz, res
}

// newer reports whether a was modified after b.
func newer(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return true
	}
	return ai.ModTime().After(bi.ModTime())
}
