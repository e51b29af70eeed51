package neo4j

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/deckgraph/deckgraph/internal/util"
	"github.com/deckgraph/deckgraph/pkg/common"
	"github.com/deckgraph/deckgraph/pkg/logger"
)

// connectTries bounds the startup connectivity probes.
const connectTries = 3

// Store implements graphstore.Store against a Bolt-speaking property
// graph (Neo4j or Memgraph). Every write goes through ExecuteWrite so one
// file's delta is one transaction.
type Store struct {
	driver   neo4j.DriverWithContext
	database string

	schemaOnce sync.Once
}

// NewStoreParams holds the connection configuration. Parameters come from
// the environment; nothing is hardcoded in the pipeline.
type NewStoreParams struct {
	URI            string
	Username       string
	Password       string
	Database       string
	TimeoutSeconds int
}

// NewStore creates a Store and verifies connectivity once up front.
func NewStore(ctx context.Context, params NewStoreParams) (*Store, error) {
	if params.URI == "" {
		return nil, &common.ValidationError{Reason: "graph store URI is empty"}
	}

	timeout := time.Duration(params.TimeoutSeconds) * time.Second
	if params.TimeoutSeconds <= 0 {
		timeout = 10 * time.Second
	}

	auth := neo4j.BasicAuth(params.Username, params.Password, "")
	driver, err := neo4j.NewDriverWithContext(params.URI, auth, func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, &common.StoreConnectionError{Op: "init driver", Err: err}
	}

	// Startup is the one place connectivity is retried; a store that
	// drops mid-run surfaces the failure to the caller instead.
	err = util.RetryErrWithContext(ctx, connectTries, func(ctx context.Context) error {
		verifyCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return driver.VerifyConnectivity(verifyCtx)
	})
	if err != nil {
		_ = driver.Close(ctx)
		return nil, &common.StoreConnectionError{Op: "verify connectivity", Err: err}
	}

	return &Store{
		driver:   driver,
		database: params.Database,
	}, nil
}

// NewStoreFromEnv builds connection parameters from GRAPH_URI, GRAPH_USER,
// GRAPH_PASSWORD, GRAPH_DATABASE, and GRAPH_TIMEOUT_SECONDS.
func NewStoreFromEnv(ctx context.Context) (*Store, error) {
	return NewStore(ctx, NewStoreParams{
		URI:            util.GetEnvString("GRAPH_URI", "bolt://127.0.0.1:7687"),
		Username:       util.GetEnv("GRAPH_USER"),
		Password:       util.GetEnv("GRAPH_PASSWORD"),
		Database:       util.GetEnv("GRAPH_DATABASE"),
		TimeoutSeconds: util.GetEnvInt("GRAPH_TIMEOUT_SECONDS", 10),
	})
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

// VerifyConnectivity pings the store.
func (s *Store) VerifyConnectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return &common.StoreConnectionError{Op: "verify connectivity", Err: err}
	}
	return nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// ensureSchema creates the uniqueness constraints backing natural-key
// merges. Best-effort; restricted users may not be allowed to.
func (s *Store) ensureSchema(ctx context.Context) {
	s.schemaOnce.Do(func() {
		session := s.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)

		statements := []string{
			`CREATE CONSTRAINT presentation_key_unique IF NOT EXISTS FOR (p:Presentation) REQUIRE p.key IS UNIQUE`,
			`CREATE CONSTRAINT slide_key_unique IF NOT EXISTS FOR (s:Slide) REQUIRE s.key IS UNIQUE`,
			`CREATE CONSTRAINT topic_key_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.key IS UNIQUE`,
			`CREATE CONSTRAINT keyword_key_unique IF NOT EXISTS FOR (k:Keyword) REQUIRE k.key IS UNIQUE`,
			`CREATE CONSTRAINT entity_key_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.key IS UNIQUE`,
			`CREATE INDEX slide_presentation_idx IF NOT EXISTS FOR (s:Slide) ON (s.presentation_key)`,
		}
		for _, stmt := range statements {
			res, err := session.Run(ctx, stmt, nil)
			if err != nil {
				logger.Warn("Graph schema init failed (continuing)", "err", err)
				continue
			}
			_, _ = res.Consume(ctx)
		}
	})
}

func storeErr(op string, err error) error {
	return &common.StoreConnectionError{Op: op, Err: err}
}
