// Package config holds the run configuration shared read-only by every worker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

// Duration wraps time.Duration so it can be written as "90m" in the config.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Filters are the thresholds handed to the germline and coverage filters.
// A zero value disables the corresponding germline condition.
type Filters struct {
	Qual           float64 `toml:"qual"`
	MinCovA        int     `toml:"min_covA"`
	MinReadsStrand int     `toml:"min_reads_strand"`
	MinReadsAlt    int     `toml:"min_reads_alt"`

	MinCovB     int     `toml:"min_covB"`
	MaxAltB     int     `toml:"max_altB"`
	MaxPropAltB float64 `toml:"max_prop_altB"`

	MinCovN     int     `toml:"min_covN"`
	MaxAltN     int     `toml:"max_altN"`
	MaxPropAltN float64 `toml:"max_prop_altN"`
}

// Naming is the artifact naming convention.
type Naming struct {
	// Suffix probed next to a filtering_germline output to find the
	// artifact used for cross-sample comparison.
	UnfilteredSuffix string `toml:"unfiltered_suffix"`
	// Tag of the raw FilterMutectCalls output.
	FilteredCallsTag string `toml:"filtered_calls_tag"`
}

// Commands are fasttemplate templates for the shell collaborators.
// Placeholders are written as {{name}}.
type Commands struct {
	Bgzip    string `toml:"bgzip"`
	Tabix    string `toml:"tabix"`
	Isec     string `toml:"isec"`
	Merge    string `toml:"merge"`
	Sort     string `toml:"sort"`
	Filter   string `toml:"filter"`
	Coverage string `toml:"coverage"`
}

type Config struct {
	Reference        string   `toml:"reference_genome"`
	OutDir           string   `toml:"output_directory"`
	Intervals        string   `toml:"bed_annotation"`
	PanelOfNormals   string   `toml:"normal_panel"`
	GermlineResource string   `toml:"germline_resource"`
	AlleleFrequency  string   `toml:"allele_frequency"`
	MutectOptions    string   `toml:"mutect_options"`
	GATK             string   `toml:"gatk_jar"`
	Picard           string   `toml:"picard_jar"`
	Bamout           bool     `toml:"bamout"`
	Timeout          Duration `toml:"timeout"`

	Filters  Filters  `toml:"filters"`
	Naming   Naming   `toml:"naming"`
	Commands Commands `toml:"commands"`
}

// Default returns a Config with the default thresholds, naming and commands.
func Default() Config {
	return Config{
		Filters: Filters{MinCovB: 15, MaxAltB: 0, MaxPropAltB: 0.0, MinCovN: 5, MaxAltN: 15, MaxPropAltN: 0.3},
		Naming: Naming{
			UnfilteredSuffix: ".noGermline.vcf",
			FilteredCallsTag: "unfiltered",
		},
		Commands: Commands{
			Bgzip:    "bgzip -f -c {{in}} > {{out}}",
			Tabix:    "tabix -f -p vcf {{in}}",
			Isec:     "bcftools isec {{a}} {{b}} -p {{out}}",
			Merge:    "bcftools merge --force-samples -O v -o {{out}} {{in}}",
			Sort:     "bcftools sort -O {{fmt}} -o {{out}} {{in}}",
			Filter:   `bcftools filter -O {{fmt}} -o {{out}} -i "{{expr}}" {{in}}`,
			Coverage: `bcftools mpileup -f {{ref}} -R {{bed}} -a AD,DP -Ou {{bam}} | bcftools query -f '%CHROM\t%POS\t%REF\t%ALT\t[%AD]\n' > {{out}}`,
		},
	}
}

// Load reads a TOML config on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	if !xopen.Exists(path) {
		return nil, errors.Errorf("config file %s not found", path)
	}
	c := Default()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, errors.Wrapf(err, "error reading config %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func fileCheck(path, what string) error {
	if path == "" {
		return nil
	}
	if !xopen.Exists(path) {
		return errors.Errorf("%s %s not found", what, path)
	}
	return nil
}

// Validate checks every field once. It also creates the output directory.
func (c *Config) Validate() error {
	if c.Reference == "" {
		return errors.New("please specify reference_genome")
	}
	if err := fileCheck(c.Reference, "Genome fasta"); err != nil {
		return err
	}
	checks := [][2]string{
		{c.Intervals, "Bed file"},
		{c.PanelOfNormals, "Panel of normals file"},
		{c.GermlineResource, "Germline resource file"},
		{c.GATK, "GATK jar"},
		{c.Picard, "Picard jar"},
	}
	for _, ch := range checks {
		if err := fileCheck(ch[0], ch[1]); err != nil {
			return err
		}
	}
	if c.GermlineResource != "" && c.AlleleFrequency == "" {
		return errors.New("please supply an allele frequency when using a germline resource")
	}
	if c.Timeout.Duration < 0 {
		return errors.Errorf("timeout must not be negative: %s", c.Timeout.Duration)
	}
	f := c.Filters
	for name, v := range map[string]int{"min_covA": f.MinCovA, "min_reads_strand": f.MinReadsStrand,
		"min_reads_alt": f.MinReadsAlt, "min_covB": f.MinCovB, "max_altB": f.MaxAltB, "min_covN": f.MinCovN, "max_altN": f.MaxAltN} {
		if v < 0 {
			return errors.Errorf("%s must not be negative", name)
		}
	}
	if f.MaxPropAltB < 0 || f.MaxPropAltB > 1 || f.MaxPropAltN < 0 || f.MaxPropAltN > 1 {
		return errors.New("alternate allele proportions must be between 0 and 1")
	}
	if c.Naming.UnfilteredSuffix == "" || c.Naming.FilteredCallsTag == "" {
		return errors.New("naming.unfiltered_suffix and naming.filtered_calls_tag must be set")
	}
	if c.OutDir == "" {
		return errors.New("please specify output_directory")
	}
	var err error
	if c.OutDir, err = filepath.Abs(c.OutDir); err != nil {
		return errors.Wrap(err, "error getting output path")
	}
	if err := os.MkdirAll(c.OutDir, 0755); err != nil {
		return errors.Wrap(err, "error creating output directory")
	}
	return nil
}

// GermlineExpression builds the bcftools include expression applied after
// FilterMutectCalls.
func (c *Config) GermlineExpression() string {
	f := c.Filters
	params := []string{"FILTER!=\\\"germline_risk\\\""}
	if f.Qual > 0 {
		params = append(params, fmt.Sprintf("QUAL>=%g", f.Qual))
	}
	if f.MinCovA > 0 {
		params = append(params, fmt.Sprintf("FORMAT/DP[*]>=%d", f.MinCovA))
	}
	if f.MinReadsStrand > 0 {
		params = append(params, fmt.Sprintf("FORMAT/F1R2[*]>=%d & FORMAT/F2R1[*]>=%d", f.MinReadsStrand, f.MinReadsStrand))
	}
	if f.MinReadsAlt > 0 {
		params = append(params, fmt.Sprintf("FORMAT/AD[*:1]>=%d", f.MinReadsAlt))
	}
	return strings.Join(params, " & ")
}

// Java returns the command prefix for a jar-based tool, falling back to the
// wrapper script on the $PATH.
func Java(jar, wrapper string) string {
	if jar != "" {
		return "java -jar " + jar
	}
	return wrapper
}
