package graph

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "cybergraph/backend/pkg/errors"
	"cybergraph/backend/pkg/logger"
)

// Neo4jClient executes single Cypher statements, one session per statement,
// and keeps running execution totals.
type Neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	stats ClientStats
}

// Connect opens a driver and verifies the server is reachable.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	return driver, nil
}

// NewNeo4jClient wraps a driver. An empty database uses the server default;
// a positive timeout bounds every statement as a transaction timeout.
func NewNeo4jClient(driver neo4j.DriverWithContext, database string, timeout time.Duration) *Neo4jClient {
	return &Neo4jClient{
		driver:   driver,
		database: database,
		timeout:  timeout,
		logger:   logger.Named("neo4j"),
	}
}

// Close closes the Neo4j driver connection
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Execute runs query with params in its own write session and returns all rows.
func (c *Neo4jClient) Execute(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	start := time.Now()

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	var configurers []func(*neo4j.TransactionConfig)
	if c.timeout > 0 {
		configurers = append(configurers, neo4j.WithTxTimeout(c.timeout))
	}

	result, err := session.Run(ctx, query, params, configurers...)
	if err != nil {
		c.observe(start, err)
		return nil, apperrors.NewGraphQueryFailed(query, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		c.observe(start, err)
		return nil, apperrors.NewGraphQueryFailed(query, err)
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, Row(record.AsMap()))
	}

	c.observe(start, nil)
	return rows, nil
}

// Stats returns a snapshot of the execution totals.
func (c *Neo4jClient) Stats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Neo4jClient) observe(start time.Time, err error) {
	elapsed := time.Since(start)
	queryDuration.Observe(elapsed.Seconds())

	c.mu.Lock()
	c.stats.QueriesExecuted++
	c.stats.TotalQueryTime += elapsed.Seconds()
	if err != nil {
		c.stats.QueriesFailed++
	}
	c.mu.Unlock()

	if err != nil {
		queriesTotal.WithLabelValues("failed").Inc()
		c.logger.Error("Query failed",
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	queriesTotal.WithLabelValues("ok").Inc()
	if elapsed > time.Second {
		c.logger.Warn("Slow query", zap.Duration("elapsed", elapsed))
	}
}
