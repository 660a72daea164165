// Package graphwriter implements the Graph Writer component (spec.md
// §4.I): idempotent upserts of Event/Instrument/Company nodes and their
// CAUSES/IMPACTS/LINKS/ISSUES edges into FalkorDB, plus the read-side
// queries the CMNLN Engine needs for chain discovery
// (internal/cmnln.ChainGraph). Every write is a MERGE ... ON CREATE SET
// Cypher statement, the same idempotency idiom this codebase's lineage
// uses for its own graph store.
package graphwriter

import (
	"context"
	"fmt"
	"time"

	"github.com/FalkorDB/falkordb-go/v2"
	"github.com/shugein/ceg/internal/logging"
)

// Config holds FalkorDB connection settings.
type Config struct {
	Host         string
	Port         int
	Password     string
	GraphName    string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DefaultConfig returns sane connection defaults for a local FalkorDB
// instance.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		GraphName:    "ceg",
		MaxRetries:   3,
		DialTimeout:  30 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
	}
}

// Query is a Cypher statement with named parameters.
type Query struct {
	Query      string
	Parameters map[string]interface{}
}

// Client is the minimal FalkorDB surface the Graph Writer and the CMNLN
// chain reader need.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	ExecuteQuery(ctx context.Context, q Query) (*QueryResult, error)
	InitializeSchema(ctx context.Context) error
}

type falkorClient struct {
	config Config
	logger *logging.Logger
	db     *falkordb.FalkorDB
	graph  *falkordb.Graph
}

// NewClient builds a Client against the given connection settings.
func NewClient(config Config) Client {
	return &falkorClient{config: config, logger: logging.GetLogger("graphwriter.client")}
}

func (c *falkorClient) Connect(ctx context.Context) error {
	c.logger.Info("connecting to FalkorDB at %s:%d (graph: %s)", c.config.Host, c.config.Port, c.config.GraphName)

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	connOpts := &falkordb.ConnectionOption{
		Addr:         addr,
		Password:     c.config.Password,
		DialTimeout:  c.config.DialTimeout,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,
		PoolSize:     c.config.PoolSize,
		MaxRetries:   c.config.MaxRetries,
	}

	db, err := falkordb.FalkorDBNew(connOpts)
	if err != nil {
		return fmt.Errorf("connect to FalkorDB: %w", err)
	}
	c.db = db
	c.graph = db.SelectGraph(c.config.GraphName)
	return nil
}

func (c *falkorClient) Close() error {
	if c.db != nil && c.db.Conn != nil {
		return c.db.Conn.Close()
	}
	return nil
}

func (c *falkorClient) Ping(ctx context.Context) error {
	if c.graph == nil {
		return fmt.Errorf("graphwriter: client not connected")
	}
	_, err := c.graph.Query("RETURN 1", nil, nil)
	return err
}

func (c *falkorClient) ExecuteQuery(ctx context.Context, q Query) (*QueryResult, error) {
	if c.graph == nil {
		return nil, fmt.Errorf("graphwriter: client not connected")
	}

	start := time.Now()
	result, err := c.graph.Query(q.Query, q.Parameters, nil)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("graphwriter: query failed: %w", err)
	}

	qr := convertFalkorDBResult(result)
	qr.Stats.ExecutionTime = elapsed
	return qr, nil
}

// InitializeSchema creates the indexes this pipeline's read patterns rely
// on: event lookup by id, instrument lookup by the exchange:symbol key,
// and company lookup by id.
func (c *falkorClient) InitializeSchema(ctx context.Context) error {
	statements := []string{
		"CREATE INDEX FOR (e:Event) ON (e.id)",
		"CREATE INDEX FOR (i:Instrument) ON (i.id)",
		"CREATE INDEX FOR (co:Company) ON (co.id)",
	}
	for _, stmt := range statements {
		if _, err := c.ExecuteQuery(ctx, Query{Query: stmt}); err != nil {
			// FalkorDB returns an error for an index that already exists;
			// that is not a failure worth aborting schema init over.
			c.logger.Debug("schema statement skipped: %v", err)
		}
	}
	return nil
}
