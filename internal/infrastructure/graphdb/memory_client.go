package graphdb

import (
	"context"
	"sync"
)

// Query is a statement captured by MemoryClient.
type Query struct {
	Cypher string
	Params map[string]any
}

// MemoryClient replays queued results and records every statement. It lets
// repository code run in tests without a graph database.
type MemoryClient struct {
	mu      sync.Mutex
	reads   [][]Record
	writes  [][]Record
	err     error
	history []Query
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// FailWith makes every following call return err.
func (m *MemoryClient) FailWith(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryClient) QueueRead(records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, records)
}

func (m *MemoryClient) QueueWrite(records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, records)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	return m.next(&m.reads, cypher, params)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) ([]Record, error) {
	return m.next(&m.writes, cypher, params)
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// History returns a copy of the executed statements in call order.
func (m *MemoryClient) History() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.history...)
}

func (m *MemoryClient) next(queue *[][]Record, cypher string, params map[string]any) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	copied := make(map[string]any, len(params))
	for k, v := range params {
		copied[k] = v
	}
	m.history = append(m.history, Query{Cypher: cypher, Params: copied})

	if len(*queue) == 0 {
		return nil, nil
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res, nil
}
