package samples

import (
	"context"
	"fmt"
	"strings"

	"github.com/nahlund/backend/tileserver/internal/geometry/interpolate"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// Neo4jSource reads samples from the river graph, where each tile node links
// to its children and the tiles at the deepest level link to the river nodes
// they contain.
type Neo4jSource struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logger.Logger
}

var _ Source = (*Neo4jSource)(nil)

func NewNeo4jSource(ctx context.Context, cfg Neo4jConfig, l logger.Logger) (*Neo4jSource, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	l.Info("neo4j sample source initialized", "uri", cfg.URI, "database", cfg.Database)

	return &Neo4jSource{
		driver:   driver,
		database: cfg.Database,
		logger:   l,
	}, nil
}

// tilePath renders the containment path from the zoom 0 tile down to id.
// Coordinates are formatted from integers, so the query needs no escaping.
func tilePath(id tile.ID) string {
	var b strings.Builder
	for i, t := range id.Path() {
		if i > 0 {
			b.WriteString("-[:CHILD]->")
		}
		fmt.Fprintf(&b, "(:Tile%d{x:%d,y:%d})", t.Z, t.X, t.Y)
	}
	return b.String()
}

func samplesQuery(id tile.ID) string {
	return "MATCH " + tilePath(id) + "-[:MEMBER]->(n:RiverNode)-[:WATER_LEVEL]->(wl:WaterLevel)\n" +
		"RETURN n.location AS location, wl.value AS water_level"
}

func (s *Neo4jSource) FetchSamples(ctx context.Context, id tile.ID) ([]interpolate.Sample, error) {
	s.logger.Debug("neo4j fetch samples", "z", id.Z, "x", id.X, "y", id.Y)

	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if s.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(s.database))
	}

	result, err := neo4j.ExecuteQuery(ctx, s.driver, samplesQuery(id), nil, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		s.logger.Error("neo4j fetch samples failed", "z", id.Z, "x", id.X, "y", id.Y, "error", err)
		return nil, err
	}

	out := make([]interpolate.Sample, 0, len(result.Records))
	for _, record := range result.Records {
		smp, err := recordSample(record.Get)
		if err != nil {
			s.logger.Warn("skipping malformed river node", "error", err)
			continue
		}
		out = append(out, smp)
	}

	return out, nil
}

// recordSample converts one result row, read through get.
func recordSample(get func(key string) (any, bool)) (interpolate.Sample, error) {
	rawLoc, ok := get("location")
	if !ok {
		return interpolate.Sample{}, fmt.Errorf("missing location")
	}
	loc, ok := rawLoc.(neo4j.Point2D)
	if !ok {
		return interpolate.Sample{}, fmt.Errorf("location has type %T", rawLoc)
	}

	rawLevel, ok := get("water_level")
	if !ok {
		return interpolate.Sample{}, fmt.Errorf("missing water_level")
	}

	var level float64
	switch v := rawLevel.(type) {
	case float64:
		level = v
	case int64:
		level = float64(v)
	default:
		return interpolate.Sample{}, fmt.Errorf("water_level has type %T", rawLevel)
	}

	return interpolate.Sample{Lon: loc.X, Lat: loc.Y, Value: level}, nil
}

func (s *Neo4jSource) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
