package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// WGS84 ellipsoid.
const (
	semiMajor    = 6378137.0
	eccentricity = 0.0818191908426215
)

// Area returns the area of g in square kilometres, measured on an Albers
// equal-area conic projection whose standard parallels are the southern
// and northern edges of g.
func Area(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	b := g.Bound()
	if b.IsEmpty() {
		return 0
	}
	alb := newAlbers(b.Min.Lat(), b.Max.Lat(), b.Center().Lon())
	projected := project.Geometry(orb.Clone(g), alb.project)
	return planar.Area(projected) / 1e6
}

// SnapDistance returns the geodesic distance in metres on the WGS84
// ellipsoid between the outlet as supplied and the point it was snapped to.
// Nearly antipodal points, where the iteration does not converge, fall back
// to the great-circle distance.
func SnapDistance(from, to orb.Point) float64 {
	if d, ok := vincenty(from, to); ok {
		return d
	}
	return geo.DistanceHaversine(from, to)
}

// vincenty solves the inverse geodesic problem on the WGS84 ellipsoid.
func vincenty(p1, p2 orb.Point) (float64, bool) {
	const (
		f       = 1 / 298.257223563
		maxIter = 200
	)
	b := semiMajor * (1 - f)
	if p1 == p2 {
		return 0, true
	}

	l := radians(p2.Lon() - p1.Lon())
	u1 := math.Atan((1 - f) * math.Tan(radians(p1.Lat())))
	u2 := math.Atan((1 - f) * math.Tan(radians(p2.Lat())))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	for i := 0; ; i++ {
		if i == maxIter {
			return 0, false
		}
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Hypot(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
		if sinSigma == 0 {
			return 0, true
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = 0
		if cosSqAlpha != 0 {
			// zero on the equator
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*f*sinAlpha*(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < 1e-12 {
			break
		}
	}

	uSq := cosSqAlpha * (semiMajor*semiMajor - b*b) / (b * b)
	aa := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bb := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bb * sinSigma * (cos2SigmaM + bb/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		bb/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
	return b * aa * (sigma - deltaSigma), true
}

type albers struct {
	n, c, lon0 float64
	cylinder   bool
}

func newAlbers(lat1, lat2, lon0 float64) albers {
	phi1, phi2 := radians(lat1), radians(lat2)
	m1 := msfn(phi1)
	q1 := qsfn(phi1)
	n := math.Sin(phi1)
	if math.Abs(phi1-phi2) >= 1e-10 {
		m2 := msfn(phi2)
		q2 := qsfn(phi2)
		n = (m1*m1 - m2*m2) / (q2 - q1)
	}
	if math.Abs(n) < 1e-10 {
		// Band centred on the equator: the cone opens into a cylinder.
		return albers{lon0: lon0, cylinder: true}
	}
	return albers{n: n, c: m1*m1 + n*q1, lon0: lon0}
}

func (a albers) project(p orb.Point) orb.Point {
	lam := radians(p.Lon() - a.lon0)
	q := qsfn(radians(p.Lat()))
	if a.cylinder {
		return orb.Point{semiMajor * lam, semiMajor * q / 2}
	}
	rho := semiMajor * math.Sqrt(math.Max(a.c-a.n*q, 0)) / a.n
	theta := a.n * lam
	return orb.Point{rho * math.Sin(theta), -rho * math.Cos(theta)}
}

func msfn(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-eccentricity*eccentricity*s*s)
}

func qsfn(phi float64) float64 {
	e := eccentricity
	s := math.Sin(phi)
	es := e * s
	return (1 - e*e) * (s/(1-es*es) - math.Log((1-es)/(1+es))/(2*e))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
