package domain

import "errors"

var (
	// ErrChainNotFound means the requested chain was not found.
	ErrChainNotFound = errors.New("chain not found")

	// ErrInvalidDirectory means the chain directory could not be interpreted as a list of chains.
	ErrInvalidDirectory = errors.New("invalid chain directory")

	// ErrMissingChainID means a chain descriptor carried no usable positive chain ID.
	ErrMissingChainID = errors.New("missing chain id")

	// ErrRecordCorrupt means a persisted chain record exists but cannot be decoded.
	ErrRecordCorrupt = errors.New("persisted record is corrupt")
)
