package umbra

import "errors"

var (
	// ErrResourceMissing reports a sprite or shader file that could not be
	// loaded. Renderers degrade to a placeholder and continue.
	ErrResourceMissing = errors.New("umbra: resource missing")

	// ErrShaderUnsupported reports a shader profile the hardware cannot run.
	ErrShaderUnsupported = errors.New("umbra: shader unsupported")

	// ErrNoLightingPath is returned when neither the pixel-shader nor the
	// vertex lighting path is available.
	ErrNoLightingPath = errors.New("umbra: no supported lighting path")

	// ErrIO reports a scene, catalog, or preferences file that could not be
	// read or written. The operation is aborted and prior state is kept.
	ErrIO = errors.New("umbra: file i/o failed")

	// ErrInvalidScene reports a scene file that decoded but is malformed.
	ErrInvalidScene = errors.New("umbra: invalid scene file")

	// ErrUnknownTemplate reports a catalog lookup for a missing template.
	ErrUnknownTemplate = errors.New("umbra: unknown entity template")
)
