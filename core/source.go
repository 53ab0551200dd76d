package core

import "sort"

// Source attributes an answer to the data consulted while producing it.
// Concrete source types implement the unexported isSource marker enabling a
// closed set, mirroring the Part variants.
type Source interface{ isSource() }

// TableSource records that a table (or view) was inspected or sampled.
type TableSource struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// isSource implements the Source interface for TableSource.
func (TableSource) isSource() {}

// Ref returns the schema-qualified table reference.
func (s TableSource) Ref() string { return s.Schema + "." + s.Table }

// QuerySource records an executed SQL query and the number of rows it produced.
type QuerySource struct {
	SQL      string `json:"sql"`
	RowCount int    `json:"row_count"`
}

// isSource implements the Source interface for QuerySource.
func (QuerySource) isSource() {}

// Sources is the deduplicated, caller-facing view of the sources collected
// while answering one question. Tables are sorted; queries keep issue order.
type Sources struct {
	Tables  []string      `json:"tables,omitempty"`
	Queries []QuerySource `json:"queries,omitempty"`
}

// collectSources folds raw source records into a deduplicated snapshot.
func collectSources(raw []Source) Sources {
	var out Sources
	tables := map[string]bool{}
	queries := map[string]bool{}
	for _, s := range raw {
		switch src := s.(type) {
		case TableSource:
			tables[src.Ref()] = true
		case QuerySource:
			if !queries[src.SQL] {
				queries[src.SQL] = true
				out.Queries = append(out.Queries, src)
			}
		}
	}
	for ref := range tables {
		out.Tables = append(out.Tables, ref)
	}
	sort.Strings(out.Tables)
	return out
}
