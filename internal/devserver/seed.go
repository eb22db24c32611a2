package devserver

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the fixture the mock backend starts from.
type Seed struct {
	Candidates []model.Candidate `yaml:"candidates"`
	Insights   []model.Insight   `yaml:"insights"`
	Voters     []string          `yaml:"voters"`
	Votes      struct {
		PartyA int `yaml:"partyA"`
		PartyB int `yaml:"partyB"`
	} `yaml:"votes"`
	Referendum struct {
		Yes int `yaml:"yes"`
		No  int `yaml:"no"`
	} `yaml:"referendum"`
}

// LoadSeed reads the fixture at path, or the built-in one when path is
// empty.
func LoadSeed(path string) (*Seed, error) {
	b := defaultSeed
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
	}

	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(s.Voters) == 0 {
		return nil, fmt.Errorf("seed file has no voters")
	}
	for _, c := range s.Candidates {
		if !c.Symbol.Valid() {
			return nil, fmt.Errorf("candidate %q has invalid symbol %q", c.Name, c.Symbol)
		}
	}
	return &s, nil
}
