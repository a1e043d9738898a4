package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownDataset is returned by Select for names not in the catalog.
var ErrUnknownDataset = errors.New("unknown dataset")

// Catalog lists the datasets the loader knows about.
type Catalog struct {
	Namespace string    `yaml:"namespace,omitempty"`
	ChunkSize int       `yaml:"chunkSize,omitempty"`
	Datasets  []Dataset `yaml:"datasets"`
}

// Dataset names one dataset and where its source files live.
type Dataset struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format,omitempty"`
	Edges  string `yaml:"edges"`
	Labels string `yaml:"labels,omitempty"`
	Header bool   `yaml:"header,omitempty"`
}

// ShortName is the last path segment of the name ("humans" for
// "wikidata/humans").
func (d Dataset) ShortName() string {
	return path.Base(d.Name)
}

// DefaultSubsets are the Wikidata subsets of the original loader.
var DefaultSubsets = []string{"humans", "films", "companies", "countries", "animals"}

// DefaultCatalog expects each subset under data/<subset>/.
func DefaultCatalog() *Catalog {
	c := &Catalog{}
	for _, s := range DefaultSubsets {
		c.Datasets = append(c.Datasets, Dataset{
			Name:   "wikidata/" + s,
			Format: "tsv",
			Edges:  path.Join("data", s, "edges.tsv"),
			Labels: path.Join("data", s, "labels.tsv"),
		})
	}
	return c
}

// LoadCatalog reads a catalog file. A missing file yields the default
// catalog.
func LoadCatalog(file string) (*Catalog, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return ParseCatalog(data)
}

// ParseCatalog parses and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Datasets) == 0 {
		return fmt.Errorf("catalog has no datasets")
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunkSize must not be negative")
	}

	seen := make(map[string]bool)
	for i, d := range c.Datasets {
		if d.Name == "" {
			return fmt.Errorf("dataset %d: name is required", i)
		}
		if strings.HasPrefix(d.Name, "/") || strings.Contains(d.Name, "..") {
			return fmt.Errorf("dataset %s: invalid name", d.Name)
		}
		if d.Edges == "" {
			return fmt.Errorf("dataset %s: edges is required", d.Name)
		}
		switch d.Format {
		case "", "tsv", "ntriples":
		default:
			return fmt.Errorf("dataset %s: unknown format %q", d.Name, d.Format)
		}
		if seen[d.Name] {
			return fmt.Errorf("dataset %s: listed twice", d.Name)
		}
		seen[d.Name] = true
	}

	return nil
}

// Names returns the dataset names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Datasets))
	for i, d := range c.Datasets {
		names[i] = d.Name
	}
	return names
}

// Select returns the datasets matching name: "all", a full name, or a short
// name.
func (c *Catalog) Select(name string) ([]Dataset, error) {
	if name == "" || name == "all" {
		return c.Datasets, nil
	}

	for _, d := range c.Datasets {
		if d.Name == name {
			return []Dataset{d}, nil
		}
	}

	var matches []Dataset
	for _, d := range c.Datasets {
		if d.ShortName() == name {
			matches = append(matches, d)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s (available: %s, all)", ErrUnknownDataset, name, strings.Join(c.Names(), ", "))
	case 1:
		return matches, nil
	default:
		return nil, fmt.Errorf("dataset %s is ambiguous, use the full name", name)
	}
}
