package gate

import "errors"

// ErrEmptyPipeline is returned by callers that require at least one
// configured rule before accepting any proposal; New itself permits an
// empty pipeline (everything passes vacuously) since tests often want that.
var ErrEmptyPipeline = errors.New("gate: policy pipeline has no rules configured")
