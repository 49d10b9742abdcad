package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DefaultHistory is how many entries a fallback file keeps per kind.
const DefaultHistory = 1000

// FileStore keeps one JSON array per kind on local disk, newest first, capped
// at max entries. Every write rewrites the whole file.
type FileStore[T any, P Record[T]] struct {
	path string
	max  int

	// guards read-modify-write within this process only
	mu sync.Mutex
}

// NewFileStore creates a store writing to <dir>/<kind>.json.
func NewFileStore[T any, P Record[T]](dir string, max int) *FileStore[T, P] {
	if max <= 0 {
		max = DefaultHistory
	}
	kind := P(new(T)).Kind()
	return &FileStore[T, P]{
		path: filepath.Join(dir, string(kind)+".json"),
		max:  max,
	}
}

// Path returns the backing file location.
func (s *FileStore[T, P]) Path() string {
	return s.path
}

func (s *FileStore[T, P]) Save(ctx context.Context, rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return err
	}
	recs = append([]T{*rec}, recs...)
	return s.write(recs)
}

func (s *FileStore[T, P]) Upsert(ctx context.Context, rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return err
	}
	if i := indexOf[T, P](recs, P(rec).GetID()); i >= 0 {
		recs[i] = *rec
	} else {
		recs = append([]T{*rec}, recs...)
	}
	return s.write(recs)
}

func (s *FileStore[T, P]) List(ctx context.Context, filter Filter) ([]T, error) {
	s.mu.Lock()
	recs, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		ok, err := matches(rec, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	sortNewestFirst[T, P](out)
	return out, nil
}

func (s *FileStore[T, P]) Count(ctx context.Context, filter Filter) (int64, error) {
	recs, err := s.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(recs)), nil
}

func (s *FileStore[T, P]) Get(ctx context.Context, id string) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return nil, err
	}
	i := indexOf[T, P](recs, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	rec := recs[i]
	return &rec, nil
}

func (s *FileStore[T, P]) Update(ctx context.Context, id string, partial map[string]any) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return nil, err
	}
	i := indexOf[T, P](recs, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	merged, err := merge(recs[i], partial)
	if err != nil {
		return nil, err
	}
	recs[i] = *merged
	if err := s.write(recs); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *FileStore[T, P]) Delete(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return 0, err
	}
	kept := recs[:0]
	var removed int64
	for _, rec := range recs {
		if P(&rec).GetID() == id {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.write(kept)
}

func (s *FileStore[T, P]) read() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var recs []T
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return recs, nil
}

func (s *FileStore[T, P]) write(recs []T) error {
	if len(recs) > s.max {
		recs = recs[:s.max]
	}
	if recs == nil {
		recs = []T{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func indexOf[T any, P Record[T]](recs []T, id string) int {
	for i := range recs {
		if P(&recs[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func sortNewestFirst[T any, P Record[T]](recs []T) {
	sort.SliceStable(recs, func(i, j int) bool {
		return P(&recs[i]).GetCreatedAt().After(P(&recs[j]).GetCreatedAt())
	})
}

// matches compares the JSON form of rec against filter. Absent keys compare
// as the empty string since models omit empty optional fields.
func matches[T any](rec T, filter Filter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	fields, err := toFields(rec)
	if err != nil {
		return false, err
	}
	for key, want := range filter {
		got, ok := fields[key]
		if !ok || got == nil {
			got = ""
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false, nil
		}
	}
	return true, nil
}

func merge[T any](rec T, partial map[string]any) (*T, error) {
	fields, err := toFields(rec)
	if err != nil {
		return nil, err
	}
	for k, v := range partial {
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func toFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
