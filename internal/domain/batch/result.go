// Package batch holds per-item outcomes of batch operations.
// Items are addressed by their input position, so a failure never shifts later items.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	index  int
	id     string
	vector []float32
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result. id and vector are optional.
func NewOK(index int, id string, vector []float32) Result {
	return Result{index: index, id: id, vector: vector, status: StatusOK}
}

// NewError creates a failed batch result.
func NewError(index int, err error) Result {
	return Result{index: index, status: StatusError, err: err}
}

// Index returns the input position of the item.
func (r Result) Index() int { return r.index }

// ID returns the stored identifier, if any.
func (r Result) ID() string { return r.id }

// Vector returns the embedding produced for the item, if any.
func (r Result) Vector() []float32 { return r.vector }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// OK reports whether the item succeeded.
func (r Result) OK() bool { return r.status == StatusOK }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Count returns the number of succeeded and failed items.
func Count(results []Result) (succeeded, failed int) {
	for _, r := range results {
		if r.OK() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
