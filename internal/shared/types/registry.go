package types

import "time"

// RegistryStats contains mount registry statistics
type RegistryStats struct {
	Packages    int        `json:"packages"`
	Exports     int        `json:"exports"`
	Generation  uint64     `json:"generation"`
	LastChanged *time.Time `json:"last_changed,omitempty"`
}
