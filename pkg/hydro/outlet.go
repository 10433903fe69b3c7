package hydro

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/errors"
)

// Outlet is a user-supplied pour point.
type Outlet struct {
	ID   string            `json:"id"`
	Lat  float64           `json:"lat"`
	Lng  float64           `json:"lng"`
	Area Optional[float64] `json:"area"`
	Name Optional[string]  `json:"name"`
}

// Point returns the outlet location as an orb point (lng, lat).
func (o Outlet) Point() orb.Point {
	return orb.Point{o.Lng, o.Lat}
}

// Validate checks a single outlet.
func (o Outlet) Validate() error {
	if err := errors.ValidateOutletID(o.ID); err != nil {
		return err
	}
	if err := errors.ValidateLatitude(o.Lat); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOutlet, err, "outlet %q", o.ID)
	}
	if err := errors.ValidateLongitude(o.Lng); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOutlet, err, "outlet %q", o.ID)
	}
	if a, ok := o.Area.Get(); ok && !(a > 0) {
		return errors.New(errors.ErrCodeInvalidOutlet, "outlet %q: reported area must be positive, got %v", o.ID, a)
	}
	return nil
}

// ValidateBatch checks every outlet and id uniqueness across the batch.
// All problems are collected into a single *errors.ValidationError.
func ValidateBatch(outlets []Outlet) error {
	verr := &errors.ValidationError{}
	if len(outlets) == 0 {
		verr.Add("no outlets")
		return verr
	}
	seen := make(map[string]int, len(outlets))
	for i, o := range outlets {
		if err := o.Validate(); err != nil {
			verr.Add("row %d: %s", i+1, errors.UserMessage(err))
			continue
		}
		if prev, dup := seen[o.ID]; dup {
			verr.Add("row %d: duplicate outlet id %q (first seen in row %d)", i+1, o.ID, prev+1)
			continue
		}
		seen[o.ID] = i
	}
	return verr.Err()
}
