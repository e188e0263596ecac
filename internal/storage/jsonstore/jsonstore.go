// Package jsonstore implements the flat-file storage backend: a single
// pretty-printed, key-sorted JSON file mapping tool name to record, written
// with temp-file-plus-rename atomicity.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registryerr"
)

// Store persists tools to a single JSON file. It enforces a .json suffix,
// matching the original implementation's validation rule.
type Store struct {
	path       string
	thresholds model.Thresholds
	logger     *zap.SugaredLogger

	mu sync.Mutex
}

// New constructs a flat-file store at path, which must end in ".json".
func New(path string, thresholds model.Thresholds, logger *zap.SugaredLogger) (*Store, error) {
	if !strings.HasSuffix(path, ".json") {
		return nil, fmt.Errorf("jsonstore: path %q must end in .json: %w", path, registryerr.ErrConfiguration)
	}
	return &Store{path: path, thresholds: thresholds, logger: logger}, nil
}

// record is the on-disk shape of a tool, matching spec §4.4's persisted
// field list.
type record struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	MCPServer    string          `json:"mcp_server,omitempty"`
	DeferLoading bool            `json:"defer_loading"`
	Tags         []string        `json:"tags"`
	Category     string          `json:"category,omitempty"`
	UseFrequency int             `json:"use_frequency"`
	LastUsed     *string         `json:"last_used,omitempty"`
	Temperature  model.Tier      `json:"temperature"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

func toRecord(t model.Tool) record {
	r := record{
		Name:         t.Name,
		Description:  t.Description,
		MCPServer:    t.MCPServer,
		DeferLoading: t.DeferLoading,
		Tags:         t.SortedTags(),
		Category:     t.Category,
		UseFrequency: t.UseFrequency,
		Temperature:  t.Temperature,
		InputSchema:  t.InputSchema,
		OutputSchema: t.OutputSchema,
	}
	if t.LastUsed != nil {
		s := t.LastUsed.UTC().Format(timeLayout)
		r.LastUsed = &s
	}
	return r
}

const timeLayout = "2006-01-02T15:04:05.999999Z07:00"

func fromRecord(r record) (model.Tool, error) {
	t := model.Tool{
		Name:         r.Name,
		Description:  r.Description,
		MCPServer:    r.MCPServer,
		DeferLoading: r.DeferLoading,
		Tags:         append([]string(nil), r.Tags...),
		Category:     r.Category,
		UseFrequency: r.UseFrequency,
		Temperature:  r.Temperature,
		InputSchema:  r.InputSchema,
		OutputSchema: r.OutputSchema,
	}
	if r.LastUsed != nil && *r.LastUsed != "" {
		ts, err := parseTime(*r.LastUsed)
		if err != nil {
			return model.Tool{}, err
		}
		t.LastUsed = &ts
	}
	return t, nil
}

func (s *Store) LoadAll(_ context.Context) ([]model.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAllLocked()
}

func (s *Store) loadAllLocked() ([]model.Tool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonstore: read %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}

	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("jsonstore: corrupt file %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}

	tools := make([]model.Tool, 0, len(records))
	for name, r := range records {
		t, err := fromRecord(r)
		if err != nil {
			if s.logger != nil {
				s.logger.Warnw("skipping corrupt tool record", "name", name, "error", err)
			}
			continue
		}
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

func (s *Store) Save(ctx context.Context, tool model.Tool) error {
	return s.SaveMany(ctx, []model.Tool{tool})
}

func (s *Store) SaveMany(_ context.Context, tools []model.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadAllMapLocked()
	if err != nil {
		return err
	}
	for _, t := range tools {
		existing[t.Name] = toRecord(t)
	}
	return s.writeAtomicLocked(existing)
}

func (s *Store) loadAllMapLocked() (map[string]record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]record), nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonstore: read %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}
	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("jsonstore: corrupt file %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}
	if records == nil {
		records = make(map[string]record)
	}
	return records, nil
}

// writeAtomicLocked serializes records to a sibling temp file in the same
// directory, then renames it over the real path. If the map is empty the
// file is removed entirely, matching the original implementation.
func (s *Store) writeAtomicLocked(records map[string]record) error {
	if len(records) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("jsonstore: remove empty store %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
		}
		return nil
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonstore: marshal records: %w", joinErr(registryerr.ErrInternal, err))
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jsonstore: create dir %s: %w", dir, joinErr(registryerr.ErrStorage, err))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("jsonstore: create temp file: %w", joinErr(registryerr.ErrStorage, err))
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("jsonstore: write temp file: %w", joinErr(registryerr.ErrStorage, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("jsonstore: close temp file: %w", joinErr(registryerr.ErrStorage, err))
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("jsonstore: rename temp file: %w", joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

func (s *Store) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAllMapLocked()
	if err != nil {
		return false, err
	}
	if _, ok := records[name]; !ok {
		return false, nil
	}
	delete(records, name)
	if err := s.writeAtomicLocked(records); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.loadAllMapLocked()
	if err != nil {
		return false, err
	}
	_, ok := records[name]
	return ok, nil
}

// LoadByTemperature filters in memory using the configured use_frequency
// thresholds, not the stored temperature column, per spec §4.4.2's intent
// applied uniformly to both backends.
func (s *Store) LoadByTemperature(_ context.Context, tier model.Tier, limit int) ([]model.Tool, error) {
	s.mu.Lock()
	all, err := s.loadAllLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]model.Tool, 0)
	for _, t := range all {
		if s.thresholds.Classify(t.UseFrequency) == tier {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	return n == 0, err
}

func (s *Store) Get(ctx context.Context, name string) (model.Tool, bool, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return model.Tool{}, false, err
	}
	for _, t := range all {
		if t.Name == name {
			return t, true, nil
		}
	}
	return model.Tool{}, false, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("jsonstore: clear %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

// Initialize creates the parent directory and, if the file does not exist,
// writes an empty map atomically.
func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jsonstore: create dir %s: %w", dir, joinErr(registryerr.ErrStorage, err))
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return s.writeAtomicEmptyLocked()
	}
	return nil
}

func (s *Store) writeAtomicEmptyLocked() error {
	data := []byte("{}")
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("jsonstore: create temp file: %w", joinErr(registryerr.ErrStorage, err))
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("jsonstore: write temp file: %w", joinErr(registryerr.ErrStorage, err))
	}
	tmp.Close()
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("jsonstore: rename temp file: %w", joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

// Validate checks that the path exists, is a regular file, and parses as
// JSON.
func (s *Store) Validate(_ context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("jsonstore: validate %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}
	if info.IsDir() {
		return fmt.Errorf("jsonstore: %s is a directory, expected a file: %w", s.path, registryerr.ErrConfiguration)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("jsonstore: validate read %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("jsonstore: validate parse %s: %w", s.path, joinErr(registryerr.ErrStorage, err))
	}
	return nil
}
