package db

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/stratadb/strata/core"
)

const relationsPath = "relations.jsonl"

// Link records a directed, labeled edge between two rows. Duplicates are
// allowed and endpoints are not checked for existence.
func (e *Engine) Link(fromTable string, fromID uint64, label, toTable string, toID uint64) error {
	e.store.Lock()
	defer e.store.Unlock()

	edges, err := e.loadEdges()
	if err != nil {
		return err
	}

	edges = append(edges, core.Edge{
		FromTable: fromTable,
		FromID:    fromID,
		Label:     label,
		ToTable:   toTable,
		ToID:      toID,
	})

	data, err := encodeEdges(edges)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Linking %s/%d -[%s]-> %s/%d", fromTable, fromID, label, toTable, toID)
	if _, err := e.store.WriteFile(relationsPath, data, e.identity, message); err != nil {
		return err
	}

	e.log.Debugw("edge linked", "from", fromTable, "fromId", fromID, "label", label, "to", toTable, "toId", toID)
	return nil
}

// Unlink removes at most one edge matching all five attributes exactly.
// Returns the number of edges removed (0 or 1).
func (e *Engine) Unlink(fromTable string, fromID uint64, label, toTable string, toID uint64) (int, error) {
	e.store.Lock()
	defer e.store.Unlock()

	edges, err := e.loadEdges()
	if err != nil {
		return 0, err
	}

	index := -1
	for i, edge := range edges {
		if edge.FromTable == fromTable && edge.FromID == fromID &&
			edge.Label == label &&
			edge.ToTable == toTable && edge.ToID == toID {
			index = i
			break
		}
	}
	if index < 0 {
		return 0, nil
	}

	edges = append(edges[:index], edges[index+1:]...)

	message := fmt.Sprintf("Unlinking %s/%d -[%s]-> %s/%d", fromTable, fromID, label, toTable, toID)
	if len(edges) == 0 {
		if _, err := e.store.DeletePaths([]string{relationsPath}, e.identity, message); err != nil {
			return 0, err
		}
		return 1, nil
	}

	data, err := encodeEdges(edges)
	if err != nil {
		return 0, err
	}
	if _, err := e.store.WriteFile(relationsPath, data, e.identity, message); err != nil {
		return 0, err
	}

	return 1, nil
}

// Neighbor is one edge target returned by Walk.
type Neighbor struct {
	Table string
	ID    uint64
}

// Walk returns the targets of every edge leaving (table, id) with the given
// label, in the order the edges were created.
func (e *Engine) Walk(table string, id uint64, label string) ([]Neighbor, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	edges, err := e.loadEdges()
	if err != nil {
		return nil, err
	}

	var out []Neighbor
	for _, edge := range edges {
		if edge.FromTable == table && edge.FromID == id && edge.Label == label {
			out = append(out, Neighbor{Table: edge.ToTable, ID: edge.ToID})
		}
	}
	return out, nil
}

// loadEdges reads the edge log. Callers hold the store lock.
func (e *Engine) loadEdges() ([]core.Edge, error) {
	data, ok := e.store.ReadFile(relationsPath)
	if !ok {
		return nil, nil
	}

	var edges []core.Edge
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var edge core.Edge
		if err := json.Unmarshal(line, &edge); err != nil {
			return nil, fmt.Errorf("failed to decode edge log: %w", err)
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func encodeEdges(edges []core.Edge) ([]byte, error) {
	var buf bytes.Buffer
	for _, edge := range edges {
		line, err := json.Marshal(edge)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
