package types

// JSONMap is a free-form jsonb column value.
type JSONMap map[string]any
