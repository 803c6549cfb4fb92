package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/flexmath"
)

// Heights samples fractal simplex noise on a res x res grid, normalized to
// [0, 1]. Octaves halve in amplitude and double in frequency.
func Heights(seed int64, res, octaves int, frequency float64) []float32 {
	noise := opensimplex.New(seed)
	out := make([]float32, res*res)
	lo, hi := float32(1e9), float32(-1e9)
	for z := 0; z < res; z++ {
		for x := 0; x < res; x++ {
			var v, amp, norm float64 = 0, 1, 0
			f := frequency
			for range max(octaves, 1) {
				v += amp * noise.Eval2(float64(x)*f, float64(z)*f)
				norm += amp
				amp *= 0.5
				f *= 2
			}
			h := float32(v / norm)
			out[z*res+x] = h
			lo, hi = min(lo, h), max(hi, h)
		}
	}
	if span := hi - lo; span > 0 {
		for i, h := range out {
			out[i] = (h - lo) / span
		}
	}
	return out
}

// addTerrain adds a noise height field centred on at.
func addTerrain(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error {
	t := cfg.Terrain
	if t.Resolution < 2 {
		return fmt.Errorf("terrain resolution %d, need at least 2", t.Resolution)
	}
	sc.heights = append(sc.heights, colliders.HeightFieldData{
		Width:   t.Resolution,
		Depth:   t.Resolution,
		Heights: Heights(cfg.Seed, t.Resolution, t.Octaves, t.Frequency),
	})
	size := float32(t.Size)
	sc.addCollider(colliders.Shape{
		Type:      colliders.HeightField,
		Center:    mgl32.Vec3{-size / 2, 0, -size / 2},
		Size:      mgl32.Vec3{size, float32(t.Height), size},
		DataIndex: int32(len(sc.heights) - 1),
	}, flexmath.Translation(at))
	return nil
}
