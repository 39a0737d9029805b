package umbra

import (
	"time"

	"go.uber.org/zap"
)

// debugStats holds per-frame timing and draw metrics.
// Only populated when Scene.debug is true.
type debugStats struct {
	updateTime time.Duration
	cullTime   time.Duration
	renderTime time.Duration
	bakeTime   time.Duration
	visible    int
	frame      FrameStats
}

// debugLog logs timing and draw stats at debug level.
func (s *Scene) debugLog(stats debugStats) {
	if !s.debug {
		return
	}
	total := stats.updateTime + stats.cullTime + stats.renderTime + stats.bakeTime
	Logger().Debug("frame",
		zap.Duration("update", stats.updateTime),
		zap.Duration("cull", stats.cullTime),
		zap.Duration("render", stats.renderTime),
		zap.Duration("bake", stats.bakeTime),
		zap.Duration("total", total),
		zap.Int("entities", s.Buckets.Len()),
		zap.Int("buckets", s.Buckets.NumBuckets()),
		zap.Int("visible", stats.visible),
		zap.Int("shadow_draws", stats.frame.ShadowDraws),
		zap.Int("ambient_draws", stats.frame.AmbientDraws),
		zap.Int("lightmap_draws", stats.frame.LightmapDraws),
		zap.Int("light_draws", stats.frame.LightDraws),
		zap.Int("placeholders", stats.frame.Placeholders),
		zap.Bool("bake_pending", s.Lightmaps.Pending()),
	)
	debugCheckBucketLoad(s.Buckets)
}

// debugMaxBucketLoad is the entity count above which a bucket is reported.
const debugMaxBucketLoad = 1000

// debugCheckBucketLoad warns when a bucket holds so many entities that the
// bucket size is likely too large for the scene.
func debugCheckBucketLoad(m *BucketManager) {
	for k, b := range m.buckets {
		if len(b.entities) > debugMaxBucketLoad {
			Logger().Warn("bucket overloaded",
				zap.Int("x", k.X), zap.Int("y", k.Y),
				zap.Int("entities", len(b.entities)),
				zap.Int("threshold", debugMaxBucketLoad))
		}
	}
}
