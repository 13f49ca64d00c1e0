// Package store provides the vector storage layer for course materials.
//
// An Index maintains two logical collections: a course catalog keyed by
// title, used for fuzzy course-name resolution and outlines, and a content
// collection holding embedded chunks for semantic search.
package store
