// Package main is the assetscan command line tool.
//
// assetscan mounts content directories under package roots, gathers the
// headers of every package file into an asset registry, and works with the
// resulting snapshot.
//
// Commands:
//   - scan: discover and gather all content, then save a snapshot
//   - dump: write a sorted text rendering of a snapshot
//   - query: filter records or walk the dependency graph, printing JSON
//
// Configuration:
//   - ASSET_* environment variables (see internal/infrastructure/config)
//   - Flags override the environment
//
// Usage:
//
//	# Scan two roots with a zstd compressed discovery cache
//	ASSET_CACHE_COMPRESSION=zstd ./assetscan scan --root ./Content=/Game --root ./Plugins/Foo/Content=/Foo
//
//	# Inspect the snapshot
//	./assetscan dump --sections ObjectPath,DependencyDetails
//	./assetscan query --class World --tag Difficulty=Hard
//	./assetscan query --refs /Game/Materials/Stone --flags hard
//
// Signals:
//   - SIGINT, SIGTERM: stop gathering; nothing is saved
package main
