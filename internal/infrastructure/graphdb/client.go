package graphdb

import (
	"context"
	"errors"
)

// Client is the small surface repositories need from a Cypher-speaking store.
type Client interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	Close(ctx context.Context) error
}

// Record is one result row keyed by column name.
type Record map[string]any

// String returns the string value at key, or "" if absent or of another type.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

var ErrMissingURI = errors.New("graph URI is required")
