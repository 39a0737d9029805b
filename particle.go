package umbra

import (
	"math"
	"math/rand/v2"
)

// particle holds per-particle simulation state. Unexported; managed by ParticleSystem.
type particle struct {
	x, y       float64
	vx, vy     float64
	life       float64 // remaining lifetime in seconds
	maxLife    float64 // initial lifetime (for computing t)
	startScale float64
	endScale   float64
	scale      float64
	startAlpha float64
	endAlpha   float64
	alpha      float64
	color      Color
}

// EmitterConfig controls how particles are spawned and behave.
type EmitterConfig struct {
	// Sprite is the image drawn for every particle.
	Sprite string `json:"sprite" yaml:"sprite" msgpack:"sprite"`
	// Size is the particle sprite size at scale 1.
	Size Vec2 `json:"size" yaml:"size" msgpack:"size"`
	// Offset positions the emitter relative to its entity.
	Offset Vec3 `json:"offset" yaml:"offset" msgpack:"offset"`
	// MaxParticles is the pool size. New particles are silently dropped when full.
	MaxParticles int `json:"max_particles" yaml:"max_particles" msgpack:"max_particles"`
	// EmitRate is the number of particles spawned per second.
	EmitRate float64 `json:"emit_rate" yaml:"emit_rate" msgpack:"emit_rate"`
	// Lifetime is the range of particle lifetimes in seconds.
	Lifetime Range `json:"lifetime" yaml:"lifetime" msgpack:"lifetime"`
	// Speed is the range of initial particle speeds in pixels per second.
	Speed Range `json:"speed" yaml:"speed" msgpack:"speed"`
	// Angle is the range of emission angles in radians.
	Angle Range `json:"angle" yaml:"angle" msgpack:"angle"`
	// StartScale is the range of scale factors at birth, interpolated to EndScale over lifetime.
	StartScale Range `json:"start_scale" yaml:"start_scale" msgpack:"start_scale"`
	// EndScale is the range of scale factors at death.
	EndScale Range `json:"end_scale" yaml:"end_scale" msgpack:"end_scale"`
	// StartAlpha is the range of alpha values at birth, interpolated to EndAlpha over lifetime.
	StartAlpha Range `json:"start_alpha" yaml:"start_alpha" msgpack:"start_alpha"`
	// EndAlpha is the range of alpha values at death.
	EndAlpha Range `json:"end_alpha" yaml:"end_alpha" msgpack:"end_alpha"`
	// Gravity is the constant acceleration applied to all particles each frame.
	Gravity Vec2 `json:"gravity" yaml:"gravity" msgpack:"gravity"`
	// StartColor is the tint at birth, interpolated to EndColor over lifetime.
	StartColor Color `json:"start_color" yaml:"start_color" msgpack:"start_color"`
	// EndColor is the tint at death.
	EndColor Color `json:"end_color" yaml:"end_color" msgpack:"end_color"`
	// Additive draws particles with BlendAdd instead of BlendNormal.
	Additive bool `json:"additive" yaml:"additive" msgpack:"additive"`
}

// ParticleSystem is a CPU-simulated particle emitter attached to an entity.
// Particles are simulated in scene space so they stay behind when the
// entity moves.
type ParticleSystem struct {
	config    EmitterConfig
	particles []particle
	alive     int
	emitAccum float64
	active    bool
}

// NewParticleSystem creates a ParticleSystem with a preallocated pool. The
// system starts active.
func NewParticleSystem(cfg EmitterConfig) *ParticleSystem {
	n := cfg.MaxParticles
	if n <= 0 {
		n = 128
	}
	return &ParticleSystem{
		config:    cfg,
		particles: make([]particle, n),
		active:    true,
	}
}

// Start begins emitting particles.
func (ps *ParticleSystem) Start() {
	ps.active = true
}

// Stop stops emitting new particles. Existing particles continue to live out.
func (ps *ParticleSystem) Stop() {
	ps.active = false
}

// Reset stops emitting and kills all alive particles.
func (ps *ParticleSystem) Reset() {
	ps.active = false
	ps.alive = 0
	ps.emitAccum = 0
}

// IsActive reports whether the system is currently emitting new particles.
func (ps *ParticleSystem) IsActive() bool {
	return ps.active
}

// AliveCount returns the number of alive particles.
func (ps *ParticleSystem) AliveCount() int {
	return ps.alive
}

// Config returns a pointer to the system's config for live tuning.
func (ps *ParticleSystem) Config() *EmitterConfig {
	return &ps.config
}

// update advances the simulation by dt seconds. origin is the emitter's
// current scene position; new particles spawn there.
func (ps *ParticleSystem) update(dt float64, origin Vec2) {
	gx := ps.config.Gravity.X * dt
	gy := ps.config.Gravity.Y * dt

	// Swap-remove dead particles.
	i := 0
	for i < ps.alive {
		p := &ps.particles[i]
		p.life -= dt
		if p.life <= 0 {
			ps.alive--
			ps.particles[i] = ps.particles[ps.alive]
			continue
		}

		p.vx += gx
		p.vy += gy
		p.x += p.vx * dt
		p.y += p.vy * dt

		t := 1.0 - p.life/p.maxLife
		p.scale = lerp(p.startScale, p.endScale, t)
		p.alpha = lerp(p.startAlpha, p.endAlpha, t)
		p.color = Color{
			R: lerp(ps.config.StartColor.R, ps.config.EndColor.R, t),
			G: lerp(ps.config.StartColor.G, ps.config.EndColor.G, t),
			B: lerp(ps.config.StartColor.B, ps.config.EndColor.B, t),
			A: 1,
		}
		i++
	}

	if ps.active && ps.config.EmitRate > 0 {
		ps.emitAccum += ps.config.EmitRate * dt
		for ps.emitAccum >= 1.0 {
			ps.emitAccum -= 1.0
			if ps.alive < len(ps.particles) {
				ps.spawnParticle(origin)
			}
		}
	}
}

// spawnParticle initializes the particle at slot ps.alive and increments alive.
func (ps *ParticleSystem) spawnParticle(origin Vec2) {
	p := &ps.particles[ps.alive]

	angle := ps.config.Angle.Random()
	speed := ps.config.Speed.Random()
	p.vx = math.Cos(angle) * speed
	p.vy = math.Sin(angle) * speed
	p.x = origin.X
	p.y = origin.Y

	p.life = ps.config.Lifetime.Random()
	if p.life <= 0 {
		p.life = 1.0
	}
	p.maxLife = p.life

	p.startScale = ps.config.StartScale.Random()
	p.endScale = ps.config.EndScale.Random()
	p.scale = p.startScale
	p.startAlpha = ps.config.StartAlpha.Random()
	p.endAlpha = ps.config.EndAlpha.Random()
	p.alpha = p.startAlpha
	p.color = ps.config.StartColor
	p.color.A = 1

	ps.alive++
}

// each calls fn for every alive particle with its scene-plane position.
func (ps *ParticleSystem) each(fn func(pos Vec2, scale, alpha float64, c Color)) {
	for i := 0; i < ps.alive; i++ {
		p := &ps.particles[i]
		fn(Vec2{p.x, p.y}, p.scale, p.alpha, p.color)
	}
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Random returns a random float64 in [Min, Max].
func (r Range) Random() float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + rand.Float64()*(r.Max-r.Min)
}
