package geo

import (
	"fmt"
	"math"
)

// Surface is a toroidal surface sampled on an nphi×ntheta grid. Points are
// ordered with θ varying fastest: index i·ntheta + j.
type Surface interface {
	// Gamma returns the grid points.
	Gamma() []Vec3

	// Normal returns ∂γ/∂φ × ∂γ/∂θ, whose norm is the area element.
	Normal() []Vec3

	// Nphi returns the number of toroidal grid points.
	Nphi() int

	// Ntheta returns the number of poloidal grid points.
	Ntheta() int
}

// Range selects the toroidal extent covered by the φ grid.
type Range string

// Toroidal ranges.
const (
	RangeFullTorus   Range = "full torus"
	RangeFieldPeriod Range = "field period"
	RangeHalfPeriod  Range = "half period"
)

// ParseRange validates a range name.
func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case RangeFullTorus, RangeFieldPeriod, RangeHalfPeriod:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown range %q", ErrInvalidSurface, s)
}

// SurfaceRZFourier is a toroidal surface given in cylindrical coordinates by
//
//	R(θ, φ) = Σ rc(m,n)·cos(2π(mθ − n·nfp·φ)) + rs(m,n)·sin(…)
//	Z(θ, φ) = Σ zs(m,n)·sin(2π(mθ − n·nfp·φ)) + zc(m,n)·cos(…)
//
// for 0 ≤ m ≤ mpol and −ntor ≤ n ≤ ntor, with φ and θ in [0, 1). With
// stellarator symmetry rs and zc are zero.
type SurfaceRZFourier struct {
	nfp        int
	stellsym   bool
	mpol, ntor int
	rc, rs     [][]float64 // [m][n+ntor]
	zc, zs     [][]float64

	quadphi, quadtheta []float64

	gamma, normal []Vec3
}

// NewSurfaceRZFourier creates a surface with all modes zero.
func NewSurfaceRZFourier(nfp int, stellsym bool, mpol, ntor int, rng Range, nphi, ntheta int) (*SurfaceRZFourier, error) {
	if nfp < 1 || mpol < 0 || ntor < 0 || nphi < 1 || ntheta < 1 {
		return nil, fmt.Errorf("%w: nfp=%d mpol=%d ntor=%d grid %dx%d", ErrInvalidSurface, nfp, mpol, ntor, nphi, ntheta)
	}
	var end float64
	switch rng {
	case RangeFullTorus:
		end = 1
	case RangeFieldPeriod:
		end = 1 / float64(nfp)
	case RangeHalfPeriod:
		end = 0.5 / float64(nfp)
	default:
		return nil, fmt.Errorf("%w: unknown range %q", ErrInvalidSurface, rng)
	}
	quadphi := make([]float64, nphi)
	for i := range quadphi {
		quadphi[i] = end * float64(i) / float64(nphi)
		if rng == RangeHalfPeriod {
			quadphi[i] += 0.5 * end / float64(nphi)
		}
	}
	modes := func() [][]float64 {
		out := make([][]float64, mpol+1)
		for m := range out {
			out[m] = make([]float64, 2*ntor+1)
		}
		return out
	}
	return &SurfaceRZFourier{
		nfp:       nfp,
		stellsym:  stellsym,
		mpol:      mpol,
		ntor:      ntor,
		rc:        modes(),
		rs:        modes(),
		zc:        modes(),
		zs:        modes(),
		quadphi:   quadphi,
		quadtheta: Quadpoints(ntheta),
	}, nil
}

// NewTorus creates a circular-cross-section torus of major radius R0 and
// minor radius a.
func NewTorus(nfp int, stellsym bool, R0, a float64, rng Range, nphi, ntheta int) (*SurfaceRZFourier, error) {
	s, err := NewSurfaceRZFourier(nfp, stellsym, 1, 0, rng, nphi, ntheta)
	if err != nil {
		return nil, err
	}
	if err := s.SetRC(0, 0, R0); err != nil {
		return nil, err
	}
	if err := s.SetRC(1, 0, a); err != nil {
		return nil, err
	}
	if err := s.SetZS(1, 0, a); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SurfaceRZFourier) set(modes [][]float64, name string, m, n int, v float64) error {
	if m < 0 || m > s.mpol || n < -s.ntor || n > s.ntor {
		return fmt.Errorf("%w: %s(%d,%d) outside mpol=%d ntor=%d", ErrInvalidSurface, name, m, n, s.mpol, s.ntor)
	}
	modes[m][n+s.ntor] = v
	s.gamma, s.normal = nil, nil
	return nil
}

// SetRC sets rc(m,n).
func (s *SurfaceRZFourier) SetRC(m, n int, v float64) error { return s.set(s.rc, "rc", m, n, v) }

// SetZS sets zs(m,n).
func (s *SurfaceRZFourier) SetZS(m, n int, v float64) error { return s.set(s.zs, "zs", m, n, v) }

// SetRS sets rs(m,n). It fails on stellarator-symmetric surfaces.
func (s *SurfaceRZFourier) SetRS(m, n int, v float64) error {
	if s.stellsym {
		return fmt.Errorf("%w: rs modes break stellarator symmetry", ErrInvalidSurface)
	}
	return s.set(s.rs, "rs", m, n, v)
}

// SetZC sets zc(m,n). It fails on stellarator-symmetric surfaces.
func (s *SurfaceRZFourier) SetZC(m, n int, v float64) error {
	if s.stellsym {
		return fmt.Errorf("%w: zc modes break stellarator symmetry", ErrInvalidSurface)
	}
	return s.set(s.zc, "zc", m, n, v)
}

// NFP returns the number of field periods.
func (s *SurfaceRZFourier) NFP() int { return s.nfp }

// Stellsym reports whether the surface is stellarator symmetric.
func (s *SurfaceRZFourier) Stellsym() bool { return s.stellsym }

// Nphi implements Surface.
func (s *SurfaceRZFourier) Nphi() int { return len(s.quadphi) }

// Ntheta implements Surface.
func (s *SurfaceRZFourier) Ntheta() int { return len(s.quadtheta) }

// QuadpointsPhi returns the toroidal grid parameters.
func (s *SurfaceRZFourier) QuadpointsPhi() []float64 {
	return append([]float64(nil), s.quadphi...)
}

// QuadpointsTheta returns the poloidal grid parameters.
func (s *SurfaceRZFourier) QuadpointsTheta() []float64 {
	return append([]float64(nil), s.quadtheta...)
}

func (s *SurfaceRZFourier) compute() {
	if s.gamma != nil {
		return
	}
	nphi, ntheta := s.Nphi(), s.Ntheta()
	s.gamma = make([]Vec3, nphi*ntheta)
	s.normal = make([]Vec3, nphi*ntheta)
	for i, phi := range s.quadphi {
		sp, cp := math.Sincos(2 * math.Pi * phi)
		for j, theta := range s.quadtheta {
			var r, rp, rt, z, zp, zt float64
			for m := 0; m <= s.mpol; m++ {
				for n := -s.ntor; n <= s.ntor; n++ {
					idx := n + s.ntor
					arg := 2 * math.Pi * (float64(m)*theta - float64(n*s.nfp)*phi)
					sa, ca := math.Sincos(arg)
					kphi := -2 * math.Pi * float64(n*s.nfp)
					ktheta := 2 * math.Pi * float64(m)
					rc, rs, zc, zs := s.rc[m][idx], s.rs[m][idx], s.zc[m][idx], s.zs[m][idx]

					r += rc*ca + rs*sa
					z += zs*sa + zc*ca
					dr := -rc*sa + rs*ca
					dz := zs*ca - zc*sa
					rp += dr * kphi
					rt += dr * ktheta
					zp += dz * kphi
					zt += dz * ktheta
				}
			}
			k := i*ntheta + j
			s.gamma[k] = Vec3{r * cp, r * sp, z}
			dphi := Vec3{rp*cp - 2*math.Pi*r*sp, rp*sp + 2*math.Pi*r*cp, zp}
			dtheta := Vec3{rt * cp, rt * sp, zt}
			s.normal[k] = dphi.Cross(dtheta)
		}
	}
}

// Gamma implements Surface.
func (s *SurfaceRZFourier) Gamma() []Vec3 {
	s.compute()
	return cloneVecs(s.gamma)
}

// Normal implements Surface.
func (s *SurfaceRZFourier) Normal() []Vec3 {
	s.compute()
	return cloneVecs(s.normal)
}

// UnitNormal returns the normals scaled to unit length.
func (s *SurfaceRZFourier) UnitNormal() []Vec3 {
	out := s.Normal()
	for k := range out {
		out[k] = out[k].Scale(1 / out[k].Norm())
	}
	return out
}

// Area returns the area of the whole torus, the mean of the area element
// over the grid.
func (s *SurfaceRZFourier) Area() float64 {
	n := s.Normal()
	sum := 0.0
	for _, v := range n {
		sum += v.Norm()
	}
	return sum / float64(len(n))
}
