package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/predictops/tipsync/internal/model"
)

// Manifest describes one prediction pool: the evidence documents to capture
// from the platform and the entities open for prediction. It is the
// operator-maintained counterpart to the state the stores accumulate.
type Manifest struct {
	Scope     string             `yaml:"scope"`
	Documents []ManifestDocument `yaml:"documents"`
	Matches   []ManifestMatch    `yaml:"matches"`
	Bonus     []ManifestBonus    `yaml:"bonus"`
}

// ManifestDocument is one capture target. Page is the platform page path
// relative to the pool; Merge marks tabular documents whose rows should be
// stamped with observation provenance instead of stored verbatim.
type ManifestDocument struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label,omitempty"`
	Page  string `yaml:"page"`
	Merge bool   `yaml:"merge,omitempty"`
}

// ManifestMatch is one game open for a score prediction.
type ManifestMatch struct {
	ID   string `yaml:"id"`
	Home string `yaml:"home"`
	Away string `yaml:"away"`
}

// ManifestBonus is one bonus question with its option set and bounds.
type ManifestBonus struct {
	ID      string   `yaml:"id"`
	Prompt  string   `yaml:"prompt"`
	Options []string `yaml:"options"`
	Min     int      `yaml:"min,omitempty"`
	Max     int      `yaml:"max,omitempty"`
}

// LoadManifest reads and validates a pool manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse manifest")
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]struct{})
	for _, d := range m.Documents {
		if d.Name == "" || d.Page == "" {
			return eris.Wrap(model.ErrInvalid, "pipeline: manifest document needs name and page")
		}
		if _, dup := seen[d.Name]; dup {
			return eris.Wrapf(model.ErrInvalid, "pipeline: duplicate manifest document %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	keys := make(map[string]struct{})
	for _, e := range m.Entities() {
		if e.Key() == "" {
			return eris.Wrap(model.ErrInvalid, "pipeline: manifest entity without id")
		}
		if _, dup := keys[e.Key()]; dup {
			return eris.Wrapf(model.ErrInvalid, "pipeline: duplicate manifest entity %q", e.Key())
		}
		keys[e.Key()] = struct{}{}
	}
	return nil
}

// Entities returns the manifest's matches and bonus questions in declaration
// order, matches first.
func (m *Manifest) Entities() []model.Entity {
	out := make([]model.Entity, 0, len(m.Matches)+len(m.Bonus))
	for _, mt := range m.Matches {
		out = append(out, model.MatchEntity{ID: mt.ID, Home: mt.Home, Away: mt.Away})
	}
	for _, b := range m.Bonus {
		out = append(out, model.BonusQuestion{
			ID:            b.ID,
			Prompt:        b.Prompt,
			Options:       b.Options,
			MinSelections: b.Min,
			MaxSelections: b.Max,
		})
	}
	return out
}

// Ref returns the document reference recorded on predictions built from the
// named manifest document.
func (d ManifestDocument) Ref() model.DocumentRef {
	return model.DocumentRef{Name: d.Name, Label: d.Label}
}
