package common

import "fmt"

// ExtractionError reports a PDF that could not be read or parsed.
// Extraction failures are recorded per file; they never abort a batch.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StoreConnectionError reports that the graph store is unreachable or a
// store call timed out. It is fatal to the current operation and is not
// retried automatically within a run.
type StoreConnectionError struct {
	Op  string
	Err error
}

func (e *StoreConnectionError) Error() string {
	return fmt.Sprintf("graph store %s: %v", e.Op, e.Err)
}

func (e *StoreConnectionError) Unwrap() error { return e.Err }

// NotFoundError reports a query for a node that does not exist. It is
// distinct from a found-but-empty result.
type NotFoundError struct {
	Kind NodeKind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// ValidationError reports malformed arguments or a nonexistent input
// path. It is fatal before any processing starts.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}
