// Package graph defines the Domain Graph data model and its serialization.
//
// A Domain Graph describes the module-level structure of an analyzed project:
// domain modules (nodes), directed relationships between them (edges), and the
// child files revealed when a module is expanded. The format carries both JSON
// and BSON tags so the same types serve API responses, snapshot files on disk,
// and the MongoDB view store.
package graph

import (
	"slices"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// NodeType classifies what role a domain module plays in the codebase.
type NodeType string

// Domain module types.
const (
	NodeTypeCore           NodeType = "core"
	NodeTypePresentation   NodeType = "presentation"
	NodeTypeData           NodeType = "data"
	NodeTypeUtility        NodeType = "utility"
	NodeTypeInfrastructure NodeType = "infrastructure"
	NodeTypeUnknown        NodeType = "unknown"
)

// Tier is the architecture layer a module belongs to. Tiers drive the
// vertical grouping of the graph layout and are independent of the onion
// layer a user is viewing.
type Tier string

// Architecture tiers in fixed top-to-bottom display order.
const (
	TierPresentation   Tier = "presentation"
	TierBusiness       Tier = "business"
	TierData           Tier = "data"
	TierInfrastructure Tier = "infrastructure"
)

// TierOrder is the fixed top-to-bottom ordering of tiers in the layout.
var TierOrder = []Tier{TierPresentation, TierBusiness, TierData, TierInfrastructure}

// ParseTier maps a raw tier string to a known Tier.
// Unrecognized values fall into the business tier.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPresentation, TierBusiness, TierData, TierInfrastructure:
		return Tier(s)
	default:
		return TierBusiness
	}
}

// RelationType describes how one domain module relates to another.
type RelationType string

// Relationship types. Parallel edges of differing types between the same
// pair of modules are allowed.
const (
	RelationImport    RelationType = "import"
	RelationImplement RelationType = "implement"
	RelationExtend    RelationType = "extend"
	RelationCompose   RelationType = "compose"
	RelationCall      RelationType = "call"
)

// FileType distinguishes files from directories in an expansion.
type FileType string

// Module file types.
const (
	FileTypeFile      FileType = "file"
	FileTypeDirectory FileType = "directory"
)

// =============================================================================
// DomainNode - Module-Level Vertex
// =============================================================================

// DomainNode represents one domain module in the graph. Identity is the ID;
// a node is immutable once fetched for a given focus.
type DomainNode struct {
	ID                string   `json:"id" bson:"id"`
	Name              string   `json:"name" bson:"name"`
	Path              string   `json:"path" bson:"path"`
	Type              NodeType `json:"type" bson:"type"`
	ArchitectureLayer Tier     `json:"architecture_layer" bson:"architecture_layer"`
	FileCount         int      `json:"file_count,omitempty" bson:"file_count,omitempty"`
	LineCount         int      `json:"line_count,omitempty" bson:"line_count,omitempty"`
	DependentCount    int      `json:"dependent_count,omitempty" bson:"dependent_count,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
	Exports           []string `json:"exports,omitempty" bson:"exports,omitempty"`
	Annotation        string   `json:"annotation,omitempty" bson:"annotation,omitempty"`
}

// DisplayName returns the name if set, otherwise the ID.
func (n *DomainNode) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// =============================================================================
// DomainRelationship - Directed Edge
// =============================================================================

// DomainRelationship is a directed edge between two domain modules.
type DomainRelationship struct {
	Source string       `json:"source" bson:"source"`
	Target string       `json:"target" bson:"target"`
	Type   RelationType `json:"type" bson:"type"`
}

// Touches reports whether either endpoint of the relationship equals id.
// Used for derived selection highlighting; emphasis is never stored.
func (r DomainRelationship) Touches(id string) bool {
	return id != "" && (r.Source == id || r.Target == id)
}

// =============================================================================
// ModuleFile - Expansion Leaf
// =============================================================================

// ModuleFile is a leaf-level child shown beneath an expanded module node.
type ModuleFile struct {
	ID        string   `json:"id" bson:"id"`
	Name      string   `json:"name" bson:"name"`
	Path      string   `json:"path" bson:"path"`
	Type      FileType `json:"type" bson:"type"`
	Language  string   `json:"language,omitempty" bson:"language,omitempty"`
	LineCount int      `json:"line_count,omitempty" bson:"line_count,omitempty"`
}

// Annotation is the semantic summary shown when a child file is selected.
type Annotation struct {
	Path    string `json:"path" bson:"path"`
	Summary string `json:"summary" bson:"summary"`
	Purpose string `json:"purpose,omitempty" bson:"purpose,omitempty"`
}

// =============================================================================
// Domain - Graph Aggregate
// =============================================================================

// Domain is the canonical serialization format for a Domain Graph.
// Used for API responses, snapshot files, caching, and the view store.
//
// The format is designed for round-trip fidelity: export → re-import
// produces identical results. Nodes are kept sorted by ID.
type Domain struct {
	Nodes         []DomainNode         `json:"nodes" bson:"nodes"`
	Relationships []DomainRelationship `json:"relationships" bson:"relationships"`
}

// Node returns the node with the given ID, or nil if not present.
func (d *Domain) Node(id string) *DomainNode {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// IncomingCount returns the number of relationships targeting id.
func (d *Domain) IncomingCount(id string) int {
	count := 0
	for _, r := range d.Relationships {
		if r.Target == id {
			count++
		}
	}
	return count
}

// Normalize sorts nodes by ID for deterministic output and recomputes each
// node's DependentCount from the relationship list.
func (d *Domain) Normalize() {
	slices.SortFunc(d.Nodes, func(a, b DomainNode) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	for i := range d.Nodes {
		d.Nodes[i].DependentCount = d.IncomingCount(d.Nodes[i].ID)
	}
}
