package interaction

import (
	"onionscope/pkg/graph"
	"onionscope/pkg/graph/layout"
)

// =============================================================================
// Module Expansion Lifecycle
// =============================================================================

// Expansions returns a copy of the expansion map, suitable as input to
// layout.Compute.
func (c *Controller) Expansions() map[string]layout.Expansion {
	out := make(map[string]layout.Expansion, len(c.expansions))
	for id, exp := range c.expansions {
		out[id] = exp
	}
	return out
}

// Expansion returns the expansion entry for a module and whether one exists.
// Absence means the module is collapsed.
func (c *Controller) Expansion(moduleID string) (layout.Expansion, bool) {
	exp, ok := c.expansions[moduleID]
	return exp, ok
}

// ToggleExpand flips a module between collapsed and expanded.
//
// Collapsed → a loading entry is created and a FileFetch is returned for
// the shell to execute. Expanded (resolved or errored) → the entry is
// removed entirely, so state never grows across expand/collapse cycles and
// re-expansion always re-fetches. Loading → no-op; only one fetch per
// module id may be in flight.
func (c *Controller) ToggleExpand(moduleID, path string) *FileFetch {
	if exp, ok := c.expansions[moduleID]; ok {
		if exp.Loading {
			return nil
		}
		delete(c.expansions, moduleID)
		return nil
	}

	c.expansions[moduleID] = layout.Expansion{ModuleID: moduleID, Loading: true}
	return &FileFetch{ModuleID: moduleID, Path: path}
}

// TakeFileFetches returns the fetches queued by pointer gestures since the
// last call and clears the queue. The shell must execute each one and feed
// the outcome back via ResolveFiles or FailFiles.
func (c *Controller) TakeFileFetches() []*FileFetch {
	fetches := c.fileFetches
	c.fileFetches = nil
	return fetches
}

// RetryExpansion re-issues the fetch for a module whose expansion errored.
// Returns nil if the module has no errored entry.
func (c *Controller) RetryExpansion(moduleID, path string) *FileFetch {
	exp, ok := c.expansions[moduleID]
	if !ok || exp.Loading || exp.Err == "" {
		return nil
	}
	c.expansions[moduleID] = layout.Expansion{ModuleID: moduleID, Loading: true}
	return &FileFetch{ModuleID: moduleID, Path: path}
}

// ResolveFiles applies a completed child-file fetch. The result is
// discarded unless a loading entry for the module still exists: if the
// user collapsed the node while the fetch was in flight, the entry is
// gone and the stale response must not re-expand it.
func (c *Controller) ResolveFiles(moduleID string, files []graph.ModuleFile) {
	exp, ok := c.expansions[moduleID]
	if !ok || !exp.Loading {
		return
	}
	c.expansions[moduleID] = layout.Expansion{ModuleID: moduleID, Files: files}
}

// FailFiles records a failed child-file fetch. Stale failures are discarded
// by the same rule as ResolveFiles; the entry never gets stuck loading.
func (c *Controller) FailFiles(moduleID string, err error) {
	exp, ok := c.expansions[moduleID]
	if !ok || !exp.Loading {
		return
	}
	msg := "fetch failed"
	if err != nil {
		msg = err.Error()
	}
	c.expansions[moduleID] = layout.Expansion{ModuleID: moduleID, Err: msg}
}
