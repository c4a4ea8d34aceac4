package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"

	"loyaltix/internal/database"
)

// ID source kinds accepted by NewIDSource
const (
	IDSourceSequence  = "sequence"
	IDSourceSnowflake = "snowflake"
)

// NewIDSource builds the ID source for Postgres-backed repositories
func NewIDSource(kind string, node int64, db *database.DB) (IDSource, error) {
	switch kind {
	case IDSourceSequence:
		return NewSequenceIDSource(db), nil
	case IDSourceSnowflake:
		ids, err := NewSnowflakeIDSource(node)
		if err != nil {
			return nil, err
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unknown id source %q", kind)
	}
}

// SequenceIDSource draws IDs from the entity_id_seq Postgres sequence
type SequenceIDSource struct {
	db *database.DB
}

func NewSequenceIDSource(db *database.DB) *SequenceIDSource {
	return &SequenceIDSource{db: db}
}

func (s *SequenceIDSource) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('entity_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to draw id: %w", err)
	}
	return id, nil
}

// SnowflakeIDSource generates time-ordered IDs without a database round trip.
// Each running instance needs its own node number.
type SnowflakeIDSource struct {
	node *snowflake.Node
}

func NewSnowflakeIDSource(node int64) (*SnowflakeIDSource, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", node, err)
	}
	return &SnowflakeIDSource{node: n}, nil
}

func (s *SnowflakeIDSource) NextID(ctx context.Context) (int64, error) {
	return s.node.Generate().Int64(), nil
}

// CounterIDSource counts up from a starting value; used by the memory store and tests
type CounterIDSource struct {
	last atomic.Int64
}

func NewCounterIDSource(start int64) *CounterIDSource {
	s := &CounterIDSource{}
	s.last.Store(start)
	return s
}

func (s *CounterIDSource) NextID(ctx context.Context) (int64, error) {
	return s.last.Add(1), nil
}
