package observation

import (
	"encoding/binary"
	"math"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// RenderCache maps poses to their rendered depth maps. Keys compare the exact bit patterns of
// the pose, so poses differing in the last bit (or 0 and -0) are different entries. Nothing is
// ever evicted; call Clear once the scene changes. Safe for concurrent use.
type RenderCache struct {
	entries cmap.ConcurrentMap[string, []float64]
}

// NewRenderCache returns an empty cache.
func NewRenderCache() *RenderCache {
	return &RenderCache{entries: cmap.New[[]float64]()}
}

// Get returns the depth map stored for pose. The returned slice is shared and must not be
// modified.
func (c *RenderCache) Get(pose []float64) ([]float64, bool) {
	return c.entries.Get(poseKey(pose))
}

// Set stores depth for pose, replacing any previous entry.
func (c *RenderCache) Set(pose, depth []float64) {
	c.entries.Set(poseKey(pose), depth)
}

// Len returns the number of cached poses.
func (c *RenderCache) Len() int {
	return c.entries.Count()
}

// Clear removes every entry.
func (c *RenderCache) Clear() {
	c.entries.Clear()
}

func poseKey(pose []float64) string {
	buf := make([]byte, 8*len(pose))
	for i, v := range pose {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return string(buf)
}
