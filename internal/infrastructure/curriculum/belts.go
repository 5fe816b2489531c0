// Package curriculum loads the belt ladder and curriculum items from files:
// a YAML belt catalog, JSON terminology and pattern files, and XLSX or CSV
// curriculum sheets.
package curriculum

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tkdojang/dojang/internal/domain/belt"
)

// BeltsFile is the conventional belt catalog name inside a content directory.
const BeltsFile = "belts.yaml"

type yamlBeltFile struct {
	Belts []yamlBelt `yaml:"belts"`
}

type yamlBelt struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	ShortName string `yaml:"short_name"`
	Color     string `yaml:"color"`
	SortOrder int    `yaml:"sort_order"`
	Beginner  bool   `yaml:"beginner_tier"`
	Dan       bool   `yaml:"dan"`
}

// DecodeBelts parses a YAML belt catalog.
func DecodeBelts(r io.Reader) (*belt.Catalog, error) {
	var f yamlBeltFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode belts: %w", err)
	}
	ranks := make([]belt.Rank, 0, len(f.Belts))
	for _, b := range f.Belts {
		short := b.ShortName
		if short == "" {
			short = b.Name
		}
		ranks = append(ranks, belt.Rank{
			ID:             b.ID,
			Name:           b.Name,
			ShortName:      short,
			Color:          b.Color,
			SortOrder:      b.SortOrder,
			IsBeginnerTier: b.Beginner,
			IsDan:          b.Dan,
		})
	}
	return belt.NewCatalog(ranks)
}

// LoadBelts reads the belt catalog at path within fsys. A missing file
// yields the standard ladder.
func LoadBelts(fsys fs.FS, path string) (*belt.Catalog, error) {
	f, err := fsys.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return belt.StandardCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open belts: %w", err)
	}
	defer f.Close()
	cat, err := DecodeBelts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// beltRef normalizes a belt reference from content files. "8th Keup",
// "8th-keup" and "8th_keup" all name the same ID; nothing else is inferred.
func beltRef(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func resolveBelt(belts *belt.Catalog, ref string) (belt.Rank, error) {
	if strings.TrimSpace(ref) == "" {
		return belt.Rank{}, fmt.Errorf("belt is required")
	}
	return belts.ByID(beltRef(ref))
}
