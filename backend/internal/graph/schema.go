package graph

import (
	"context"

	"go.uber.org/zap"

	"cybergraph/backend/pkg/logger"
)

// schemaConstraints keep node keys unique within each fixed label.
var schemaConstraints = []string{
	"CREATE CONSTRAINT technique_id_unique IF NOT EXISTS FOR (n:Technique) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT tactic_id_unique IF NOT EXISTS FOR (n:Tactic) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT threat_group_id_unique IF NOT EXISTS FOR (n:ThreatGroup) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT malware_id_unique IF NOT EXISTS FOR (n:Malware) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT tool_id_unique IF NOT EXISTS FOR (n:Tool) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT mitigation_id_unique IF NOT EXISTS FOR (n:Mitigation) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT cve_id_unique IF NOT EXISTS FOR (n:CVE) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT source_id_unique IF NOT EXISTS FOR (n:Source) REQUIRE n.id IS UNIQUE",
}

// schemaIndexes speed up bundle relationship resolution and name matching.
var schemaIndexes = []string{
	"CREATE INDEX technique_stix_id IF NOT EXISTS FOR (n:Technique) ON (n.stix_id)",
	"CREATE INDEX tactic_stix_id IF NOT EXISTS FOR (n:Tactic) ON (n.stix_id)",
	"CREATE INDEX threat_group_stix_id IF NOT EXISTS FOR (n:ThreatGroup) ON (n.stix_id)",
	"CREATE INDEX malware_stix_id IF NOT EXISTS FOR (n:Malware) ON (n.stix_id)",
	"CREATE INDEX tool_stix_id IF NOT EXISTS FOR (n:Tool) ON (n.stix_id)",
	"CREATE INDEX mitigation_stix_id IF NOT EXISTS FOR (n:Mitigation) ON (n.stix_id)",

	"CREATE INDEX technique_name IF NOT EXISTS FOR (n:Technique) ON (n.name)",
	"CREATE INDEX tactic_name IF NOT EXISTS FOR (n:Tactic) ON (n.name)",
	"CREATE INDEX threat_group_name IF NOT EXISTS FOR (n:ThreatGroup) ON (n.name)",
	"CREATE INDEX malware_name IF NOT EXISTS FOR (n:Malware) ON (n.name)",
	"CREATE INDEX tool_name IF NOT EXISTS FOR (n:Tool) ON (n.name)",
	"CREATE INDEX mitigation_name IF NOT EXISTS FOR (n:Mitigation) ON (n.name)",
}

// SchemaResult counts applied and failed schema statements.
type SchemaResult struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// EnsureSchema creates the uniqueness constraints and lookup indexes. Every
// statement is idempotent; failures are logged and never abort the rest.
func EnsureSchema(ctx context.Context, exec Executor) SchemaResult {
	log := logger.Named("schema")

	var result SchemaResult
	statements := append(append([]string{}, schemaConstraints...), schemaIndexes...)
	for _, stmt := range statements {
		if _, err := exec.Execute(ctx, stmt, nil); err != nil {
			// Log but don't fail - older servers reject some forms
			result.Failed++
			log.Warn("Schema statement failed", zap.String("statement", stmt), zap.Error(err))
			continue
		}
		result.Applied++
	}

	log.Info("Schema ensured",
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
	)
	return result
}
