package demand

import (
	"math"
	"math/rand"

	"github.com/aclements/go-moremath/stats"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
)

// Sampler draws attendance, noise and demand for one validated scenario.
// A Sampler owns nothing but a reference to the generator; two samplers built
// from generators with the same seed produce the same sequence.
type Sampler struct {
	rng *rand.Rand

	capacity   float64
	rBase      float64
	attendance stats.NormalDist
	noise      stats.NormalDist
}

// NewRand returns the deterministic generator used for one run.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSampler validates sc and precomputes the distribution parameters.
func NewSampler(rng *rand.Rand, sc domain.Scenario, m config.Model) (*Sampler, error) {
	if err := sc.Validate(m); err != nil {
		return nil, err
	}

	mean, std := AttendanceParams(sc, m)

	return &Sampler{
		rng:        rng,
		capacity:   float64(sc.StadiumCapacity),
		rBase:      m.RBase,
		attendance: stats.NormalDist{Mu: mean, Sigma: std},
		noise:      NoiseDist(m.NoiseSigma),
	}, nil
}

// NoiseDist returns the log-space Normal whose exponent has expectation 1:
// mu = -sigma^2/2.
func NoiseDist(sigma float64) stats.NormalDist {
	return stats.NormalDist{Mu: -0.5 * sigma * sigma, Sigma: sigma}
}

// SampleNoise draws one lognormal noise factor with mean 1.
func SampleNoise(rng *rand.Rand, sigma float64) float64 {
	return math.Exp(NoiseDist(sigma).Rand(rng))
}

// Attendance draws one attendance value in [0, capacity].
// The clamp at capacity is a deliberate point mass (sellouts).
func (s *Sampler) Attendance() int {
	a := s.attendance.Rand(s.rng)
	a = math.Max(0, math.Min(a, s.capacity))
	return int(math.RoundToEven(a))
}

// Noise draws one multiplicative noise factor.
func (s *Sampler) Noise() float64 {
	return math.Exp(s.noise.Rand(s.rng))
}

// Demand draws attendance, then noise, and returns
// round(max(0, attendance * RBase * eps)) with both components.
// The draw order is fixed so that runs sharing a seed stay aligned.
func (s *Sampler) Demand() (d int, attendance int, eps float64) {
	attendance = s.Attendance()
	eps = s.Noise()

	raw := math.Max(0, float64(attendance)*s.rBase*eps)
	return int(math.RoundToEven(raw)), attendance, eps
}
