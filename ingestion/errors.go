package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a resource store is not provided.
	ErrStoreRequired = errors.New("resource store required")

	// ErrGatewayRequired is returned when an embedding gateway is not provided.
	ErrGatewayRequired = errors.New("embedding gateway required")
)
