package models

// RefreshLevel scopes a registry refresh to the affected subtree.
type RefreshLevel string

const (
	RefreshAll    RefreshLevel = "all"
	RefreshSchema RefreshLevel = "schema"
	RefreshEntity RefreshLevel = "entity"
)

// RefreshEvent is the invalidation payload broadcast between instances
// on the shared channel. Schema and Entity are set for the narrower
// levels only.
type RefreshEvent struct {
	Level  RefreshLevel `json:"level"`
	Schema string       `json:"schema,omitempty"`
	Entity string       `json:"entity,omitempty"`
}
