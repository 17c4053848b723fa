package graph

import (
	"context"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"cybergraph/backend/internal/constants"
	"cybergraph/backend/pkg/logger"
)

// PathFinder discovers shortest routes between fuzzily matched entities.
type PathFinder struct {
	exec   Executor
	logger *zap.Logger
}

// NewPathFinder creates a path finder over exec.
func NewPathFinder(exec Executor) *PathFinder {
	return &PathFinder{
		exec:   exec,
		logger: logger.Named("paths"),
	}
}

// ClampDepth bounds a hop limit to [1, MaxPathDepth]; zero or negative means
// DefaultPathDepth.
func ClampDepth(maxDepth int) int {
	switch {
	case maxDepth <= 0:
		return constants.DefaultPathDepth
	case maxDepth > constants.MaxPathDepth:
		return constants.MaxPathDepth
	default:
		return maxDepth
	}
}

// FindPaths returns every shortest path, up to maxDepth hops, from a node
// whose name contains startPattern to a node whose name contains endPattern
// (both case-insensitive). Paths with identical name sequences collapse to the
// first one seen, and at most MaxPathResults paths are returned. Query
// failures are logged and yield an empty result.
func (f *PathFinder) FindPaths(ctx context.Context, startPattern, endPattern string, maxDepth int) []Path {
	startPattern = strings.TrimSpace(startPattern)
	endPattern = strings.TrimSpace(endPattern)
	if startPattern == "" || endPattern == "" {
		f.logger.Debug("Skipping path search with blank pattern")
		return []Path{}
	}

	hops := ClampDepth(maxDepth)
	query := "MATCH (src), (dst)\n" +
		"WHERE toLower(src.name) CONTAINS toLower($start) AND toLower(dst.name) CONTAINS toLower($end) AND src <> dst\n" +
		"MATCH path = allShortestPaths((src)-[*1.." + strconv.Itoa(hops) + "]-(dst))\n" +
		"RETURN path\n" +
		"LIMIT $limit"

	rows, err := f.exec.Execute(ctx, query, map[string]any{
		"start": startPattern,
		"end":   endPattern,
		"limit": constants.MaxPathResults,
	})
	if err != nil {
		pathQueriesTotal.WithLabelValues("failed").Inc()
		f.logger.Error("Path query failed",
			zap.String("start", startPattern),
			zap.String("end", endPattern),
			zap.Int("max_depth", hops),
			zap.Error(err),
		)
		return []Path{}
	}

	seen := newPathSet()
	paths := make([]Path, 0, len(rows))
	for _, row := range rows {
		p, ok := pathFromRow(row, "path")
		if !ok {
			continue
		}
		names := make(Path, 0, len(p.Nodes))
		for _, node := range p.Nodes {
			names = append(names, displayName(node.Props))
		}
		if !seen.add(names) {
			continue
		}
		paths = append(paths, names)
		if len(paths) == constants.MaxPathResults {
			break
		}
	}

	pathQueriesTotal.WithLabelValues("ok").Inc()
	f.logger.Debug("Found paths",
		zap.String("start", startPattern),
		zap.String("end", endPattern),
		zap.Int("paths", len(paths)),
	)
	return paths
}

func pathFromRow(row Row, key string) (neo4j.Path, bool) {
	switch v := row[key].(type) {
	case neo4j.Path:
		return v, true
	case *neo4j.Path:
		if v != nil {
			return *v, true
		}
	}
	return neo4j.Path{}, false
}
