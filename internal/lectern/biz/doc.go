// Package biz provides the business logic of the course assistant.
//
// The layer is split into the following components:
//   - Ingestor: parses course documents and writes them to the vector index
//   - Generator: runs the two-phase tool-calling generation protocol
//   - QueryCache: optional Redis cache for sessionless query answers
//   - Assistant: composes the components behind a single service surface
package biz
