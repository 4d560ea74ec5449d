// Package imaging provides the raster primitives used for frame overlays:
// multi-line text measurement and drawing with an OpenType face, layer
// compositing, and JPEG/PNG round trips.
package imaging
