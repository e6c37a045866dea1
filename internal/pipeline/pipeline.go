// Package pipeline contains the batch orchestrators, one per binary. Each
// pipeline pulls its inputs, processes profiles one unit at a time, and
// records per-unit progress so an interrupted run resumes instead of redoing
// paid API work.
package pipeline

// Summary is the end-of-run report shared by every pipeline.
type Summary struct {
	Processed int
	Skipped   int
	Errors    int
}
