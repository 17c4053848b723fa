package constants

// Node labels with a fixed meaning in the graph
const (
	LabelTechnique   = "Technique"
	LabelTactic      = "Tactic"
	LabelThreatGroup = "ThreatGroup"
	LabelMalware     = "Malware"
	LabelTool        = "Tool"
	LabelMitigation  = "Mitigation"
	LabelCVE         = "CVE"
	LabelSource      = "Source"
)

// Relationship defaults
const (
	// DefaultRelationType is used when an extraction record names no relation
	DefaultRelationType = "RELATED_TO"
	// RelationInTactic links a technique to the tactic of each kill-chain phase
	RelationInTactic = "IN_TACTIC"
)

// Path finding constants
const (
	// MaxPathResults caps the number of distinct paths returned
	MaxPathResults = 25
	// DefaultPathDepth is the hop limit used when the caller gives none
	DefaultPathDepth = 5
	// MaxPathDepth is the largest hop limit ever embedded in a query
	MaxPathDepth = 10
	// UnknownNodeName labels path nodes that carry no name, title or id
	UnknownNodeName = "Unknown"
)

// Retrieval constants
const (
	// MaxContextFragments caps the fragments returned by a single retrieval
	MaxContextFragments = 10
	// RowsPerKeyword caps the neighbourhood rows fetched for one keyword
	RowsPerKeyword = 5
	// FragmentRelevance is the constant score attached to every fragment
	FragmentRelevance = 1.0
)

// Extraction constants
const (
	// MaxExtractionChars is how much of a document the extractor sends to the LLM
	MaxExtractionChars = 3000
	// MaxRelationEntities is how many entity names are offered for relation extraction
	MaxRelationEntities = 20
	// DefaultMaxSourceChars truncates acquired source text before extraction
	DefaultMaxSourceChars = 8000
)

// Graph inspection limits
const (
	DefaultNodeListLimit = 100
	MaxNodeListLimit     = 1000
	DefaultExportLimit   = 500
	MaxExportLimit       = 5000
)
