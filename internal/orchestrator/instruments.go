package orchestrator

import (
	"os"

	"github.com/shugein/ceg/internal/models"
	"gopkg.in/yaml.v3"
)

// InstrumentIndex is the lookup surface the Orchestrator needs over the
// tradable-instrument universe: by-symbol for the Linker's tier-1 direct
// ticker match (linker.SecurityIndex), and by-id so a resolved mention can
// be turned back into a full models.Instrument for the Graph Writer.
type InstrumentIndex interface {
	BySymbol(symbol string) (models.Instrument, bool)
	ByID(id string) (models.Instrument, bool)
}

// MapInstrumentIndex is a static, in-memory InstrumentIndex loaded once at
// startup from the configured instrument universe file.
type MapInstrumentIndex struct {
	bySymbol map[string]models.Instrument
	byID     map[string]models.Instrument
}

// NewMapInstrumentIndex builds an index over instruments.
func NewMapInstrumentIndex(instruments []models.Instrument) *MapInstrumentIndex {
	idx := &MapInstrumentIndex{
		bySymbol: make(map[string]models.Instrument, len(instruments)),
		byID:     make(map[string]models.Instrument, len(instruments)),
	}
	for _, in := range instruments {
		idx.bySymbol[in.Symbol] = in
		idx.byID[in.ID()] = in
	}
	return idx
}

func (idx *MapInstrumentIndex) BySymbol(symbol string) (models.Instrument, bool) {
	in, ok := idx.bySymbol[symbol]
	return in, ok
}

func (idx *MapInstrumentIndex) ByID(id string) (models.Instrument, bool) {
	in, ok := idx.byID[id]
	return in, ok
}

// Instruments returns every instrument currently in the index, used by the
// caller to seed a linker.FuzzyIndex from the same universe.
func (idx *MapInstrumentIndex) Instruments() []models.Instrument {
	out := make([]models.Instrument, 0, len(idx.byID))
	for _, in := range idx.byID {
		out = append(out, in)
	}
	return out
}

// instrumentFile is the on-disk shape of an instrument universe file.
type instrumentFile struct {
	Instruments []models.Instrument `yaml:"instruments"`
}

// LoadInstrumentUniverse reads a YAML file listing the tradable instrument
// universe and returns a ready-to-use InstrumentIndex.
func LoadInstrumentUniverse(path string) (*MapInstrumentIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file instrumentFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	return NewMapInstrumentIndex(file.Instruments), nil
}
