// Package planner handles the planning phase of a cleanup run.
//
// The planner walks the target tree depth-first and produces a deterministic
// Plan: one Operation per visited entry, in the order the executor must apply
// them. Nothing is mutated while planning.
//
// Each entry is decided with a fixed priority:
//   - a skip-marked directory is kept and never descended
//   - a remove match deletes the entry (a directory with its whole subtree)
//   - a remove_hash name match makes a file a hash candidate; its digest is
//     computed only then, and a listed digest deletes it
//   - otherwise the cleanup rules may rename the file
//   - otherwise the entry is kept
//
// Within a directory, deletions and subdirectories are emitted in name order,
// followed by the directory's renames. A directory left with no entries is
// pruned after its children, which lets emptiness cascade upward. The
// traversal root is never deleted, renamed or pruned.
package planner
