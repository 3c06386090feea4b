package importer

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[EntityType]Definition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the entity type is already registered.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Type))
	}
	registry[def.Type] = def
}

// Lookup returns the definition for an entity type.
// Returns false if not registered.
func Lookup(entity EntityType) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[entity]
	return def, ok
}

// All returns all registered definitions, sorted by entity type for
// consistent ordering.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}

// EntityCount returns the number of registered entity types.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
