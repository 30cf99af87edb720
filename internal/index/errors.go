package index

import "errors"

var (
	// ErrEmptyCorpus is returned when a build is asked to index zero chunks.
	ErrEmptyCorpus = errors.New("empty corpus: no chunks to index")

	// ErrIndexUnavailable is the umbrella condition for an index that cannot
	// serve queries. ErrMissingIndex and ErrIndexMetadataMismatch wrap it.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrMissingIndex is returned when the vector or metadata store is absent or unreadable.
	ErrMissingIndex = &unavailableError{msg: "missing index"}

	// ErrIndexMetadataMismatch is returned when the stores disagree or metadata entries are malformed.
	ErrIndexMetadataMismatch = &unavailableError{msg: "index metadata mismatch"}
)

type unavailableError struct {
	msg string
}

func (e *unavailableError) Error() string { return e.msg }

func (e *unavailableError) Unwrap() error { return ErrIndexUnavailable }
