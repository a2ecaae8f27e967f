// Package registry provides the in-memory asset registry.
//
// State is the indexed store of gathered asset records. Records are owned by
// the primary object-path index and grouped, without ownership, by package
// name, package path, class and tag key. The dependency graph lives beside
// the records in an arena of nodes addressed by index, with every edge
// mirrored as a referencer on its target.
//
// Components:
//   - State: record indices, dependency graph, package data
//   - Filter: conjunctive queries over the secondary indices
//   - SerializationOptions: snapshot and pruning switches, loadable from
//     TOML, YAML or JSON
//   - Registry: a State behind an RWMutex, fed by a gather.Gatherer
//
// Features:
//   - Add, update and remove with the secondary indices kept in sync
//   - Categorized dependency edges (package, searchable name, manage) with
//     hard/soft, game/editor-only, build and direct/indirect properties
//   - Prune and filtered copies with orphan node collection
//   - Redirector resolution with cycle detection
//   - Snapshot save and load through the codec, including the layout written
//     before dependency properties existed
//   - Text dumps for diagnostics
//
// Example Usage:
//
//	state := registry.NewState(logger)
//	state.AddRecord(record)
//	state.AddDependencyData(deps)
//	state.EnumerateAssets(registry.Filter{ClassNames: classes}, nil, func(a *asset.AssetData) bool {
//	    fmt.Println(a.ObjectPath)
//	    return true
//	})
//	err := state.Save(w, registry.DefaultSerializationOptions(), codec.CompressionNone)
package registry
