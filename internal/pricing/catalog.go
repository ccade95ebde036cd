package pricing

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ratesFile is the on-disk shape of a room rates file:
//
//	rooms:
//	  - id: lakeside-suite
//	    weekly_rate: 3017
//	    daily_rates:
//	      "2024-06-02": 420
type ratesFile struct {
	Rooms []Room `yaml:"rooms"`
}

// LoadCatalogFile reads a YAML rates file into a MemoryCatalog.
func LoadCatalogFile(path string) (*MemoryCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pricing: open rates file: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog decodes YAML rates. Rooms without an id are rejected; duplicate
// ids keep the last entry.
func LoadCatalog(r io.Reader) (*MemoryCatalog, error) {
	var rf ratesFile
	if err := yaml.NewDecoder(r).Decode(&rf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("pricing: decode rates file: %w", err)
	}
	c := NewMemoryCatalog()
	for i, rm := range rf.Rooms {
		if rm.ID == "" {
			return nil, fmt.Errorf("pricing: rates file room #%d has no id", i+1)
		}
		c.Put(rm)
	}
	return c, nil
}
