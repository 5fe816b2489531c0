package curriculum

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

// jsonFile accepts either of the two layouts content files use: a file of
// terminology with shared defaults, or a file of patterns. A bare array is
// read as terminology.
type jsonFile struct {
	Category     string         `json:"category"`
	BeltLevel    string         `json:"belt_level"`
	Terminology  []jsonTerm     `json:"terminology"`
	Patterns     []jsonPattern  `json:"patterns"`
	StepSparring []jsonSequence `json:"step_sparring"`
}

type jsonTerm struct {
	ID         string `json:"id"`
	English    string `json:"english_term"`
	Romanized  string `json:"romanized_pronunciation"`
	Hangul     string `json:"korean_hangul"`
	Definition string `json:"definition"`
	Category   string `json:"category"`
	BeltLevel  string `json:"belt_level"`
}

type jsonPattern struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Hangul      string `json:"hangul"`
	Description string `json:"description"`
	Moves       int    `json:"moves"`
	BeltLevel   string `json:"belt_level"`
}

type jsonSequence struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	BeltLevel   string `json:"belt_level"`
}

// DecodeJSON reads one content file. source is recorded on every item.
func DecodeJSON(r io.Reader, belts *belt.Catalog, source string) ([]content.Item, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var f jsonFile
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &f.Terminology)
	} else {
		err = json.Unmarshal(raw, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}

	items := make([]content.Item, 0, len(f.Terminology)+len(f.Patterns)+len(f.StepSparring))
	for i, t := range f.Terminology {
		it, err := termItem(t, f, belts, source)
		if err != nil {
			return nil, fmt.Errorf("%s: terminology %d: %w", source, i, err)
		}
		items = append(items, it)
	}
	for i, p := range f.Patterns {
		rank, err := resolveBelt(belts, firstNonEmpty(p.BeltLevel, f.BeltLevel))
		if err != nil {
			return nil, fmt.Errorf("%s: pattern %d: %w", source, i, err)
		}
		items = append(items, content.Item{
			ID:           contentID("pattern", p.ID, p.Name),
			Kind:         content.KindPattern,
			Category:     firstNonEmpty(f.Category, "patterns"),
			Term:         p.Name,
			Hangul:       p.Hangul,
			Definition:   p.Description,
			RequiredRank: rank,
			Moves:        p.Moves,
			Source:       source,
		})
	}
	for i, s := range f.StepSparring {
		rank, err := resolveBelt(belts, firstNonEmpty(s.BeltLevel, f.BeltLevel))
		if err != nil {
			return nil, fmt.Errorf("%s: step sparring %d: %w", source, i, err)
		}
		items = append(items, content.Item{
			ID:           contentID("step-sparring", s.ID, s.Name),
			Kind:         content.KindStepSparring,
			Category:     firstNonEmpty(s.Type, f.Category, "step_sparring"),
			Term:         s.Name,
			Definition:   s.Description,
			RequiredRank: rank,
			Source:       source,
		})
	}
	return items, nil
}

func termItem(t jsonTerm, f jsonFile, belts *belt.Catalog, source string) (content.Item, error) {
	rank, err := resolveBelt(belts, firstNonEmpty(t.BeltLevel, f.BeltLevel))
	if err != nil {
		return content.Item{}, err
	}
	return content.Item{
		ID:           contentID("terminology", t.ID, t.English),
		Kind:         content.KindTerminology,
		Category:     firstNonEmpty(t.Category, f.Category, "general"),
		Term:         t.English,
		Romanized:    t.Romanized,
		Hangul:       t.Hangul,
		Definition:   t.Definition,
		RequiredRank: rank,
		Source:       source,
	}, nil
}

// contentID keeps an explicit id, otherwise derives "<prefix>/<slug>".
func contentID(prefix, id, name string) shared.ContentID {
	if id != "" {
		if cid, err := shared.NewContentID(id); err == nil {
			return cid
		}
		return shared.ContentID(id)
	}
	return shared.ContentID(prefix + "/" + shared.Slugify(name))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
