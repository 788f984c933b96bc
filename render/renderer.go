// Package render produces depth maps of rigid bodies seen by a pinhole camera.
package render

// Renderer renders the depth map seen by a fixed camera for the given body poses. The depth map
// is row-major with Rows()*Cols() entries; +Inf marks rays that hit no geometry. A Renderer is
// not required to be safe for concurrent use.
type Renderer interface {
	Rows() int
	Cols() int
	Render(pose []float64) ([]float64, error)
}
