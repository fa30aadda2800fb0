package search

import "github.com/libris-ai/libris/core"

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(query string, keywords []string)
	AfterSemanticSearch(records []core.ResourceRecord)
	SemanticDegraded(reason DegradedReason)
	AfterKeywordSearch(terms []string, records []core.ResourceRecord)
	Finish(records []core.ResourceRecord, notices []string)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)                             {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ResourceRecord)            {}
func (n *noopMonitor) SemanticDegraded(_ DegradedReason)                      {}
func (n *noopMonitor) AfterKeywordSearch(_ []string, _ []core.ResourceRecord) {}
func (n *noopMonitor) Finish(_ []core.ResourceRecord, _ []string)             {}
