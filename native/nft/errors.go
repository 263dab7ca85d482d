package nft

import "errors"

var (
	ErrNilState         = errors.New("nft: state not configured")
	ErrMetadataExists   = errors.New("nft: metadata already exists")
	ErrMetadataNotFound = errors.New("nft: metadata not found")
	ErrNotCollection    = errors.New("nft: parent is not a collection")
	ErrNoCollection     = errors.New("nft: mint has no collection")
	ErrUnauthorized     = errors.New("nft: unauthorized")
	ErrNotDelegate      = errors.New("nft: signer is not the account delegate")
	ErrNotSingleEdition = errors.New("nft: account does not hold exactly one edition")
	ErrInvalidName      = errors.New("nft: name required")
)
