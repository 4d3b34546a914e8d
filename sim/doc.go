// Package sim provides the what-if scenario simulator for construction projects.
//
// # Reading Guide
//
// Start with these files to understand the simulator:
//   - schema.go: the fixed project schema (features, outcomes, field kinds)
//   - encoding.go: the persisted category->code table shared by training and inference
//   - simulator.go: Simulate (copy row, apply overrides, encode, score, diff)
//
// # Architecture
//
// The sim package owns the record schema, dataset I/O, the category table and the
// artifact bundle. Implementations that sit on top of it live in sub-packages:
//   - sim/gbt/: gradient-boosted trees, the opaque scoring capability
//   - sim/synth/: seeded synthetic project generator
//   - sim/train/: fits both predictors and writes the artifact bundle
//   - sim/advice/: verdicts and recommendations for a ScenarioResult
//   - sim/explain/: feature importance and dataset profiles
//   - sim/journal/: SQLite log of simulated scenarios
//   - sim/server/: HTTP API for the interactive what-if form
//
// # Key Contracts
//
//   - Scorer: score(encoded vector) -> float64. The simulator never looks inside.
//   - CategoryTable: fit once at training time, stored in the bundle, reused verbatim.
//     Baseline and scenario rows are always encoded with the same table.
//   - Simulator is immutable after construction; concurrent Simulate calls need no locks.
package sim
