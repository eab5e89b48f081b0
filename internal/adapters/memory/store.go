package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// Store is an in-process hazard store for local runs and tests.
type Store struct {
	mu     sync.RWMutex
	points map[domain.HazardCategory][]domain.Point
}

// New creates an empty Store.
func New() *Store {
	return &Store{points: make(map[domain.HazardCategory][]domain.Point)}
}

// LoadFile reads a YAML seed file, see Decode.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a seed document mapping category names to [lat, lon] pairs:
//
//	pothole:
//	  - [24.959767, 67.062717]
//	speedbreaker: []
func Decode(r io.Reader) (*Store, error) {
	var doc map[string][][]float64
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	s := New()
	for name, pairs := range doc {
		c, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("seed category %q: %w", name, err)
		}
		pts := make([]domain.Point, 0, len(pairs))
		for i, pair := range pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("seed %s[%d]: want [lat, lon], got %d values", name, i, len(pair))
			}
			p := domain.Point{Lat: pair[0], Lon: pair[1]}
			if !p.Valid() {
				return nil, fmt.Errorf("seed %s[%d]: coordinate out of range", name, i)
			}
			pts = append(pts, p)
		}
		s.points[c] = append(s.points[c], pts...)
	}
	return s, nil
}

// ListByCategory returns a copy of the category's hazards.
func (s *Store) ListByCategory(_ context.Context, c domain.HazardCategory) ([]domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Point{}, s.points[c]...), nil
}

// ReplaceCategory swaps the category's hazards for points.
func (s *Store) ReplaceCategory(_ context.Context, c domain.HazardCategory, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[c] = append([]domain.Point(nil), points...)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
