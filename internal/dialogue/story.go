package dialogue

import (
	_ "embed"
)

//go:embed seed.yaml
var seedGraph []byte

// SeedGraph builds the built-in demo graph used when no graph file is configured.
func SeedGraph() (*Graph, error) {
	return Parse(seedGraph, LoadOptions{})
}

// SeedData returns the raw YAML of the demo graph.
func SeedData() []byte {
	out := make([]byte, len(seedGraph))
	copy(out, seedGraph)
	return out
}
