package tenant

import "time"

// Tenant is a registered third-party application. The integration token is
// the sole identity carrier on the data-submission path and never changes
// after registration.
type Tenant struct {
	ID               string
	DisplayName      string
	IntegrationToken string
	RegisteredAt     time.Time
	// Seq is the creation sequence assigned by the store. It breaks
	// RegisteredAt ties so placement order stays total even when two
	// registrations land on the same clock tick.
	Seq int64
}
