// Package core provides the task model and the file-system primitives the
// build pipeline is assembled from.
//
// # Core Types
//
// Task: a named unit of build logic with declared dependencies and a body.
// Resolver: deterministic glob expansion relative to a working directory.
// Executor: runs shell task bodies with an allowlisted environment.
package core
