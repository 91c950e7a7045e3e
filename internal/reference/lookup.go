// Package reference holds the SKU reference lookup: a read-only mapping from
// product identifier to catalogue and ownership data.
package reference

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/irfndi/skupulse/internal/models"
)

// Source supplies the static reference dataset.
type Source interface {
	LoadSKUReferences(ctx context.Context) ([]models.SKUReference, error)
}

// Lookup is immutable after construction and safe for concurrent readers
// without locking.
type Lookup struct {
	byNmID     map[int64]models.SKUReference
	duplicates int
}

// NewLookup freezes records into a Lookup. When an identifier repeats, the
// first record wins and the rest are counted as duplicates.
func NewLookup(records []models.SKUReference) *Lookup {
	byNmID := make(map[int64]models.SKUReference, len(records))
	duplicates := 0
	for _, r := range records {
		if _, exists := byNmID[r.NmID]; exists {
			duplicates++
			continue
		}
		byNmID[r.NmID] = r
	}
	return &Lookup{byNmID: byNmID, duplicates: duplicates}
}

// Get returns the reference for nmID and whether it was found.
func (l *Lookup) Get(nmID int64) (models.SKUReference, bool) {
	if l == nil {
		return models.SKUReference{}, false
	}
	r, ok := l.byNmID[nmID]
	return r, ok
}

// Resolve returns the reference for nmID, or an empty reference carrying
// only the identifier when nothing is known about it.
func (l *Lookup) Resolve(nmID int64) models.SKUReference {
	if r, ok := l.Get(nmID); ok {
		return r
	}
	return models.SKUReference{NmID: nmID}
}

// Len returns the number of distinct identifiers.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.byNmID)
}

// Duplicates returns how many repeated identifiers were dropped at build time.
func (l *Lookup) Duplicates() int {
	if l == nil {
		return 0
	}
	return l.duplicates
}

// Categories lists the distinct categories, sorted.
func (l *Lookup) Categories() []string {
	if l == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range l.byNmID {
		seen[r.CategoryWB] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Loader builds the Lookup from its Source on first use and hands out the same
// frozen value afterwards. A failed build is retried on the next call.
type Loader struct {
	source Source
	logger *logrus.Logger

	mu     sync.Mutex
	lookup *Lookup
}

// NewLoader creates a loader over source.
func NewLoader(source Source, logger *logrus.Logger) *Loader {
	return &Loader{source: source, logger: logger}
}

// Lookup returns the frozen lookup, building it if needed.
func (l *Loader) Lookup(ctx context.Context) (*Lookup, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lookup != nil {
		return l.lookup, nil
	}

	records, err := l.source.LoadSKUReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load SKU references: %w", err)
	}

	lookup := NewLookup(records)
	l.logger.WithFields(logrus.Fields{
		"skus":       lookup.Len(),
		"duplicates": lookup.Duplicates(),
	}).Info("SKU reference lookup built")

	l.lookup = lookup
	return lookup, nil
}

// FileSource reads the reference dataset from a YAML or JSON file with a
// top-level "skus" list.
type FileSource struct {
	Path string
}

// LoadSKUReferences implements Source.
func (f FileSource) LoadSKUReferences(_ context.Context) ([]models.SKUReference, error) {
	v := viper.New()
	v.SetConfigFile(f.Path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read reference file %s: %w", f.Path, err)
	}

	var records []models.SKUReference
	if err := v.UnmarshalKey("skus", &records); err != nil {
		return nil, fmt.Errorf("failed to decode reference file %s: %w", f.Path, err)
	}
	return records, nil
}
