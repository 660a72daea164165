package graphwriter

import (
	"time"

	"github.com/FalkorDB/falkordb-go/v2"
)

// QueryResult is the tabular result of one Cypher query.
type QueryResult struct {
	Columns []string
	Rows    [][]interface{}
	Stats   QueryStats
}

// QueryStats reports what a write query actually did, used to tell a
// no-op MERGE (ON MATCH only) apart from a true create.
type QueryStats struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
	ExecutionTime        time.Duration
}

func convertFalkorDBResult(result *falkordb.QueryResult) *QueryResult {
	qr := &QueryResult{Columns: []string{}, Rows: [][]interface{}{}}

	first := true
	for result.Next() {
		record := result.Record()
		if first {
			qr.Columns = record.Keys()
			first = false
		}
		qr.Rows = append(qr.Rows, record.Values())
	}

	qr.Stats.NodesCreated = result.NodesCreated()
	qr.Stats.RelationshipsCreated = result.RelationshipsCreated()
	qr.Stats.PropertiesSet = result.PropertiesSet()
	return qr
}
