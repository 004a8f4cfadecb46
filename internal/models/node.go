package models

// Node represents mesh node metadata from the PotatoMesh nodes API.
type Node struct {
	NodeID     string   `json:"node_id"`
	ShortName  *string  `json:"short_name,omitempty"`
	LongName   string   `json:"long_name"`
	Role       *string  `json:"role,omitempty"`
	HWModel    *string  `json:"hw_model,omitempty"`
	LastHeard  *uint64  `json:"last_heard,omitempty"`
	FirstHeard *uint64  `json:"first_heard,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Altitude   *float64 `json:"altitude,omitempty"`
}
