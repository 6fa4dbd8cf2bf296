// Package onion implements the layered navigation state machine: four fixed
// granularity layers, a visit-history stack, and a per-(layer, focus) data
// cache with coalesced asynchronous fetches.
//
// The Navigator is synchronous and single-owner. Operations that need data
// return a *Fetch describing the provider call; the shell executes it off
// the core and feeds the outcome back through Resolve or Fail, carrying the
// key the fetch was issued for. A completion whose key no longer matches an
// in-flight request is discarded, so a slow response for an abandoned focus
// can never overwrite state for the current one.
package onion

import (
	"fmt"
	"strings"

	"onionscope/pkg/errors"
	"onionscope/pkg/graph"
)

// Layer is one of the four fixed granularity levels. The declaration order
// is the depth order: ProjectIntent is the outermost shell of the onion,
// Implementation the innermost.
type Layer int

const (
	LayerProjectIntent Layer = iota
	LayerBusinessDomain
	LayerKeyProcess
	LayerImplementation
)

// Layers lists all layers outermost-first.
var Layers = []Layer{
	LayerProjectIntent,
	LayerBusinessDomain,
	LayerKeyProcess,
	LayerImplementation,
}

func (l Layer) String() string {
	switch l {
	case LayerProjectIntent:
		return "project_intent"
	case LayerBusinessDomain:
		return "business_domain"
	case LayerKeyProcess:
		return "key_process"
	case LayerImplementation:
		return "implementation"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// Title returns the human-readable layer name.
func (l Layer) Title() string {
	switch l {
	case LayerProjectIntent:
		return "Project Intent"
	case LayerBusinessDomain:
		return "Business Domain"
	case LayerKeyProcess:
		return "Key Process"
	case LayerImplementation:
		return "Implementation"
	default:
		return l.String()
	}
}

// Valid reports whether l is one of the four defined layers.
func (l Layer) Valid() bool {
	return l >= LayerProjectIntent && l <= LayerImplementation
}

// ParseLayer converts a string (as used on the command line and in API
// routes) to a Layer. Both the snake_case form and the bare index ("1"-"4")
// are accepted.
func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project_intent", "project", "intent", "1":
		return LayerProjectIntent, nil
	case "business_domain", "domain", "domains", "2":
		return LayerBusinessDomain, nil
	case "key_process", "process", "processes", "3":
		return LayerKeyProcess, nil
	case "implementation", "impl", "4":
		return LayerImplementation, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidLayer, "unknown layer: %q", s)
	}
}

// =============================================================================
// Layer Payloads
// =============================================================================

// Payload is the per-layer data shape. The concrete type is determined by
// the layer the payload was fetched for.
type Payload interface {
	PayloadLayer() Layer
}

// ProjectIntentData summarizes the whole project: the outermost layer.
type ProjectIntentData struct {
	Name        string   `json:"name" bson:"name"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Languages   []string `json:"languages,omitempty" bson:"languages,omitempty"`
	ModuleCount int      `json:"module_count" bson:"module_count"`
	FileCount   int      `json:"file_count" bson:"file_count"`
	LineCount   int      `json:"line_count" bson:"line_count"`
	EntryPoints []string `json:"entry_points,omitempty" bson:"entry_points,omitempty"`
}

func (ProjectIntentData) PayloadLayer() Layer { return LayerProjectIntent }

// BusinessDomainData is the Domain Graph: module nodes plus the
// relationships between them. It is the input to the layout engine.
type BusinessDomainData struct {
	Domains       []graph.DomainNode         `json:"domains" bson:"domains"`
	Relationships []graph.DomainRelationship `json:"relationships" bson:"relationships"`
}

func (BusinessDomainData) PayloadLayer() Layer { return LayerBusinessDomain }

// ProcessStep is one ordered step of a key process flow.
type ProcessStep struct {
	Order  int    `json:"order" bson:"order"`
	Module string `json:"module" bson:"module"`
	Action string `json:"action" bson:"action"`
}

// Process is a named flow through one or more modules.
type Process struct {
	ID          string        `json:"id" bson:"id"`
	Name        string        `json:"name" bson:"name"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	Steps       []ProcessStep `json:"steps,omitempty" bson:"steps,omitempty"`
}

// KeyProcessData lists the processes visible at the given focus; an empty
// FocusID means project-wide.
type KeyProcessData struct {
	FocusID   string    `json:"focus_id,omitempty" bson:"focus_id,omitempty"`
	Processes []Process `json:"processes" bson:"processes"`
}

func (KeyProcessData) PayloadLayer() Layer { return LayerKeyProcess }

// Symbol is a single declared identifier at the implementation layer.
type Symbol struct {
	Name     string `json:"name" bson:"name"`
	Kind     string `json:"kind" bson:"kind"` // func, type, const, var, method
	File     string `json:"file" bson:"file"`
	Line     int    `json:"line,omitempty" bson:"line,omitempty"`
	Exported bool   `json:"exported" bson:"exported"`
	Doc      string `json:"doc,omitempty" bson:"doc,omitempty"`
}

// ImplementationData is the innermost layer: the files and symbols of the
// focused module.
type ImplementationData struct {
	FocusID string             `json:"focus_id,omitempty" bson:"focus_id,omitempty"`
	Files   []graph.ModuleFile `json:"files" bson:"files"`
	Symbols []Symbol           `json:"symbols,omitempty" bson:"symbols,omitempty"`
}

func (ImplementationData) PayloadLayer() Layer { return LayerImplementation }
