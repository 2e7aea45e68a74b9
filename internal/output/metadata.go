package output

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/page"
)

// Metadata describes every page written in a run.
type Metadata struct {
	Version string     `yaml:"version"`
	Pages   []PageMeta `yaml:"pages"`
}

// PageMeta is the metadata of one page.
type PageMeta struct {
	Index    int                 `yaml:"index"`
	Name     string              `yaml:"name"`
	Output   string              `yaml:"output,omitempty"`
	Error    string              `yaml:"error,omitempty"`
	Bubbles  []page.BubbleRecord `yaml:"bubbles"`
	FreeText []geometry.Box      `yaml:"free_text,omitempty"` // detected but not translated
	Dropped  int                 `yaml:"dropped,omitempty"`
}

// WriteMetadata writes metadata to a YAML file
func WriteMetadata(m *Metadata, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadMetadata reads metadata from a YAML file
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}
