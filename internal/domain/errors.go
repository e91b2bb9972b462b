package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDeviceNotFound signals a missing device.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceExists signals a duplicate device identifier.
	ErrDeviceExists = errors.New("device already exists")
	// ErrDocumentNotFound signals a missing vector document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidInput signals a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfigurationMissing signals an absent credential or endpoint, detected before any call.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrTransportFailure signals a network error or timeout reaching a remote service.
	ErrTransportFailure = errors.New("transport failure")
	// ErrEmptyResult signals a remote call that succeeded without usable content.
	ErrEmptyResult = errors.New("empty result")
)
