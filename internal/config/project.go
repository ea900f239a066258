// Package config loads the project definition file and the application
// settings.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-sync/internal/metagenome"
	"github.com/inodb/vibe-sync/internal/variant"
)

// Project is a project definition file:
//
//	chromosomes:
//	  - name: "1"
//	    length: 248956422
//	groups:
//	  - name: cohort
//	    files: [cohort.vcf.gz]
//	    genomes:
//	      - raw: NA12878
//	        display: Mother
//	        types: [SNP, INSERTION, DELETION]
//
// Chromosomes may be omitted; lengths then come from the files' ##contig
// lines. A group without genomes loads every sample column.
type Project struct {
	Chromosomes []ChromosomeEntry `yaml:"chromosomes,omitempty"`
	Groups      []GroupEntry      `yaml:"groups"`
}

// ChromosomeEntry fixes one chromosome's reference length.
type ChromosomeEntry struct {
	Name   string `yaml:"name"`
	Length int64  `yaml:"length"`
}

// GroupEntry is one genome group and its files.
type GroupEntry struct {
	Name    string        `yaml:"name"`
	Files   []string      `yaml:"files"`
	Genomes []GenomeEntry `yaml:"genomes,omitempty"`
}

// GenomeEntry maps a sample column to a display name and the variant kinds
// loaded for it. No types means every kind.
type GenomeEntry struct {
	Raw     string         `yaml:"raw"`
	Display string         `yaml:"display,omitempty"`
	Types   []variant.Kind `yaml:"types,omitempty"`
}

// Name returns the display name, falling back to the raw name.
func (g GenomeEntry) Name() string {
	if g.Display != "" {
		return g.Display
	}
	return g.Raw
}

// LoadProject reads a project file. Relative file paths are resolved against
// the project file's directory.
func LoadProject(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	defer f.Close()

	p, err := ParseProject(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.resolve(filepath.Dir(path))
	return p, nil
}

// ParseProject decodes and validates a project definition.
func ParseProject(r io.Reader) (*Project, error) {
	var p Project
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Project) resolve(dir string) {
	for i := range p.Groups {
		for j, f := range p.Groups[i].Files {
			if !filepath.IsAbs(f) {
				p.Groups[i].Files[j] = filepath.Join(dir, f)
			}
		}
	}
}

// Validate checks names are present and unique.
func (p *Project) Validate() error {
	if len(p.Groups) == 0 {
		return fmt.Errorf("project defines no groups")
	}

	chroms := make(map[string]bool)
	for _, c := range p.Chromosomes {
		if c.Name == "" {
			return fmt.Errorf("chromosome without a name")
		}
		if c.Length <= 0 {
			return fmt.Errorf("chromosome %s: length must be positive", c.Name)
		}
		if chroms[c.Name] {
			return fmt.Errorf("chromosome %s defined twice", c.Name)
		}
		chroms[c.Name] = true
	}

	groups := make(map[string]bool)
	genomes := make(map[string]string)
	for _, g := range p.Groups {
		if g.Name == "" {
			return fmt.Errorf("group without a name")
		}
		if groups[g.Name] {
			return fmt.Errorf("group %s defined twice", g.Name)
		}
		groups[g.Name] = true
		if len(g.Files) == 0 {
			return fmt.Errorf("group %s has no files", g.Name)
		}
		raws := make(map[string]bool)
		for _, gn := range g.Genomes {
			if gn.Raw == "" {
				return fmt.Errorf("group %s: genome without a raw name", g.Name)
			}
			if raws[gn.Raw] {
				return fmt.Errorf("group %s: sample %s listed twice", g.Name, gn.Raw)
			}
			raws[gn.Raw] = true
			if other, dup := genomes[gn.Name()]; dup {
				return fmt.Errorf("genome %s defined in groups %s and %s", gn.Name(), other, g.Name)
			}
			genomes[gn.Name()] = g.Name
		}
	}
	return nil
}

// Associations converts the project into synchronization input.
func (p *Project) Associations() metagenome.Associations {
	a := metagenome.Associations{
		Files: make(map[string][]string, len(p.Groups)),
		Names: make(map[string]map[string]string),
		Types: make(map[string]variant.KindSet),
	}
	for _, g := range p.Groups {
		a.Groups = append(a.Groups, g.Name)
		a.Files[g.Name] = append([]string(nil), g.Files...)
		if len(g.Genomes) == 0 {
			continue
		}
		names := make(map[string]string, len(g.Genomes))
		for _, gn := range g.Genomes {
			names[gn.Raw] = gn.Name()
			if len(gn.Types) > 0 {
				a.Types[gn.Name()] = variant.NewKindSet(gn.Types...)
			}
		}
		a.Names[g.Name] = names
	}
	if len(p.Chromosomes) > 0 {
		a.Chromosomes = make(map[string]int64, len(p.Chromosomes))
		for _, c := range p.Chromosomes {
			a.Chromosomes[c.Name] = c.Length
		}
	}
	return a
}
