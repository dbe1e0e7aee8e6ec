// Package profile builds and persists per-table semantic profiles: column
// roles, date coverage, synonyms, quality scores, and semantic summaries.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Store is the read-mostly profile index: an in-memory map persisted as one
// JSON snapshot. Mutation happens only through the refresh flow; individual
// reads are atomic per table.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*models.TableProfile
	path     string
	logger   *zap.Logger
}

// NewStore creates a store persisting to path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		profiles: map[string]*models.TableProfile{},
		path:     path,
		logger:   logger.Named("profile-store"),
	}
}

// Get returns the profile for a table, or nil when absent.
func (s *Store) Get(table string) *models.TableProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[table]
}

// Set stores a profile under its table name, stamping profiled_at.
func (s *Store) Set(table string, p *models.TableProfile) {
	p.TableName = table
	p.ProfiledAt = time.Now().UTC()
	s.mu.Lock()
	s.profiles[table] = p
	s.mu.Unlock()
}

// GetAll returns a copy of the profile map. Profiles themselves are shared;
// callers must not mutate them.
func (s *Store) GetAll() map[string]*models.TableProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.TableProfile, len(s.profiles))
	for k, v := range s.profiles {
		out[k] = v
	}
	return out
}

// Names returns the profiled table names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Clear removes every profile.
func (s *Store) Clear() {
	s.mu.Lock()
	s.profiles = map[string]*models.TableProfile{}
	s.mu.Unlock()
}

// Delete removes one profile by table name.
func (s *Store) Delete(table string) {
	s.mu.Lock()
	delete(s.profiles, table)
	s.mu.Unlock()
}

// Save writes the snapshot through a temp file and renames it into place,
// so readers never observe a partial snapshot.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.profiles, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".profiles-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}

	s.logger.Info("Saved profile snapshot",
		zap.String("path", s.path),
		zap.Int("tables", s.Len()))
	return nil
}

// Load replaces the in-memory map with the on-disk snapshot. A missing file
// is not an error; the store just starts empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	profiles := map[string]*models.TableProfile{}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}

	s.mu.Lock()
	s.profiles = profiles
	s.mu.Unlock()

	s.logger.Info("Loaded profile snapshot",
		zap.String("path", s.path),
		zap.Int("tables", len(profiles)))
	return nil
}

// TablesForMonth returns the tables whose date range covers the month.
func (s *Store) TablesForMonth(month string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tables []string
	for name, p := range s.profiles {
		if p.DateRange.CoversMonth(month) {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables
}

// GetMetricColumns returns the metric columns of a table.
func (s *Store) GetMetricColumns(table string) []string {
	if p := s.Get(table); p != nil {
		return sorted(p.MetricColumns())
	}
	return nil
}

// GetDimensionColumns returns the dimension columns of a table.
func (s *Store) GetDimensionColumns(table string) []string {
	if p := s.Get(table); p != nil {
		return sorted(p.DimensionColumns())
	}
	return nil
}

// GetDateColumns returns the date columns of a table.
func (s *Store) GetDateColumns(table string) []string {
	if p := s.Get(table); p != nil {
		return sorted(p.DateColumns())
	}
	return nil
}

// GetColumnForTerm resolves a search term like "sales" to a column of the
// table via its synonym map.
func (s *Store) GetColumnForTerm(table, term string) (string, bool) {
	if p := s.Get(table); p != nil {
		return p.ColumnForTerm(term)
	}
	return "", false
}

// ResolveTable finds a profiled table matching name case-insensitively.
func (s *Store) ResolveTable(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.profiles[name]; ok {
		return name, true
	}
	for t := range s.profiles {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	return "", false
}

func sorted(names []string) []string {
	sort.Strings(names)
	return names
}
