package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// HazardStore implements ports.HazardStore on Valkey. Each category is a hash
// at <prefix>:<category> mapping a hazard ID to a JSON
// {"latitude": .., "longitude": ..} record.
type HazardStore struct {
	client valkey.Client
	prefix string
}

// NewHazardStore creates a HazardStore over an open client.
func NewHazardStore(client valkey.Client, prefix string) *HazardStore {
	return &HazardStore{client: client, prefix: prefix}
}

type record struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns the hash holding a category.
func (s *HazardStore) Key(c domain.HazardCategory) string {
	return s.prefix + ":" + string(c)
}

// ListByCategory returns the category's hazards ordered by hazard ID.
func (s *HazardStore) ListByCategory(ctx context.Context, c domain.HazardCategory) ([]domain.Point, error) {
	fields, err := s.client.Do(ctx, s.client.B().Hgetall().Key(s.Key(c)).Build()).AsStrMap()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return []domain.Point{}, nil
		}
		return nil, fmt.Errorf("valkey hgetall %s: %w", s.Key(c), err)
	}

	ids := make([]string, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	pts := make([]domain.Point, 0, len(ids))
	for _, id := range ids {
		var r record
		if err := json.Unmarshal([]byte(fields[id]), &r); err != nil {
			return nil, fmt.Errorf("valkey %s field %s: %w", s.Key(c), id, err)
		}
		p := domain.Point{Lat: r.Latitude, Lon: r.Longitude}
		if !p.Valid() {
			return nil, fmt.Errorf("valkey %s field %s: coordinate out of range", s.Key(c), id)
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// ReplaceCategory swaps the category's hazards for points in one MULTI/EXEC.
func (s *HazardStore) ReplaceCategory(ctx context.Context, c domain.HazardCategory, points []domain.Point) error {
	key := s.Key(c)
	cmds := valkey.Commands{
		s.client.B().Multi().Build(),
		s.client.B().Del().Key(key).Build(),
	}
	if len(points) > 0 {
		hset := s.client.B().Hset().Key(key).FieldValue()
		for i, p := range points {
			data, err := json.Marshal(record{Latitude: p.Lat, Longitude: p.Lon})
			if err != nil {
				return err
			}
			hset = hset.FieldValue(fmt.Sprintf("%06d", i), string(data))
		}
		cmds = append(cmds, hset.Build())
	}
	cmds = append(cmds, s.client.B().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	for _, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return fmt.Errorf("valkey replace %s: %w", key, err)
		}
	}
	if err := execError(results[len(results)-1]); err != nil {
		return fmt.Errorf("valkey replace %s: %w", key, err)
	}
	return nil
}

// execError reports the first failure inside an EXEC reply. Queued commands
// fail there, not on the EXEC result itself.
func execError(res valkey.ValkeyResult) error {
	replies, err := res.ToArray()
	if err != nil {
		return err
	}
	for _, r := range replies {
		if err := r.Error(); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks the connection.
func (s *HazardStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}
