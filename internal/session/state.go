package session

import "github.com/doease/doease/internal/domain"

// Snapshot is the published state contract consumed by the view layer. It
// is a value copy; mutating it does not affect the bootstrap.
type Snapshot struct {
	CurrentUser *domain.DisplayUser `json:"current_user"`
	Session     *domain.Session     `json:"-"`
	Loading     bool                `json:"loading"`

	// IsConfigured is false only in the terminal misconfiguration state, in
	// which case ConfigurationError carries the remediation text and no
	// bootstrap was attempted.
	IsConfigured       bool   `json:"is_configured"`
	ConfigurationError string `json:"configuration_error,omitempty"`
}

// SignedIn reports whether the snapshot represents a resolved, signed-in
// state.
func (s Snapshot) SignedIn() bool {
	return !s.Loading && s.CurrentUser != nil
}
