package widget

import (
	"encoding/json"
	"time"
)

// Record is the cached rendering artifact for a tenant, one per tenant.
// A record exists only after at least one submission has completed; every
// later submission replaces it wholesale. There is no history retention.
type Record struct {
	TenantID     string
	RawData      json.RawMessage
	RenderPrompt string
	CachedMarkup string
	GeneratedAt  time.Time
}

// HasArtifact reports whether the record carries displayable markup.
func (r Record) HasArtifact() bool { return r.CachedMarkup != "" }
