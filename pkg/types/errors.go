package types

import "errors"

// Domain errors shared across components
var (
	ErrInvalidRank      = errors.New("rank must be >= 1")
	ErrInvalidScore     = errors.New("score must be between 0 and 1")
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrUnknownFusion    = errors.New("unknown fusion method")
	ErrUnknownLanguage  = errors.New("unknown project language")
	ErrUnknownBlockType = errors.New("unknown content block type")
)
