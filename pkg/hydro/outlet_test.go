package hydro

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/matzehuels/watershed/pkg/errors"
)

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		name    string
		outlets []Outlet
		wantErr bool
	}{
		{
			name:    "valid",
			outlets: []Outlet{{ID: "a", Lat: 10, Lng: 20}, {ID: "b", Lat: -10, Lng: -20, Area: Some(12.5)}},
		},
		{
			name:    "empty batch",
			outlets: nil,
			wantErr: true,
		},
		{
			name:    "duplicate id",
			outlets: []Outlet{{ID: "a", Lat: 10, Lng: 20}, {ID: "a", Lat: 11, Lng: 21}},
			wantErr: true,
		},
		{
			name:    "latitude south of coverage",
			outlets: []Outlet{{ID: "a", Lat: -61, Lng: 20}},
			wantErr: true,
		},
		{
			name:    "latitude on upper bound",
			outlets: []Outlet{{ID: "a", Lat: 85, Lng: 20}},
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			outlets: []Outlet{{ID: "a", Lat: 10, Lng: 180}},
			wantErr: true,
		},
		{
			name:    "non-positive area",
			outlets: []Outlet{{ID: "a", Lat: 10, Lng: 20, Area: Some(0.0)}},
			wantErr: true,
		},
		{
			name:    "empty id",
			outlets: []Outlet{{ID: "", Lat: 10, Lng: 20}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(tt.outlets)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var verr *errors.ValidationError
			if !stderrors.As(err, &verr) {
				t.Errorf("error %T is not a ValidationError", err)
			}
		})
	}
}

func TestValidateBatchCollectsAllProblems(t *testing.T) {
	err := ValidateBatch([]Outlet{
		{ID: "a", Lat: 100, Lng: 0},
		{ID: "b", Lat: 0, Lng: 0},
		{ID: "b", Lat: 0, Lng: 0},
	})
	var verr *errors.ValidationError
	if !stderrors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("Problems = %v, want 2 entries", verr.Problems)
	}
}

func TestOptionalJSON(t *testing.T) {
	var o Outlet
	if err := json.Unmarshal([]byte(`{"id":"x","lat":1,"lng":2,"area":null,"name":"River"}`), &o); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if o.Area.Valid {
		t.Errorf("Area.Valid = true, want false")
	}
	if name, ok := o.Name.Get(); !ok || name != "River" {
		t.Errorf("Name = %q,%v, want River,true", name, ok)
	}
	if o.Area.Or(-1) != -1 {
		t.Errorf("Area.Or(-1) = %v", o.Area.Or(-1))
	}
}

func TestReachUpstream(t *testing.T) {
	r := Reach{ID: 1, Up: [4]int64{0, 7, 0, 3}}
	got := r.Upstream()
	if len(got) != 2 || got[0] != 7 || got[1] != 3 {
		t.Errorf("Upstream() = %v, want [7 3]", got)
	}
}

func TestResolutionLabel(t *testing.T) {
	if ResolutionHigh.Label() != "high res" || ResolutionLow.Label() != "low res" || Resolution("").Label() != "failed" {
		t.Error("unexpected resolution labels")
	}
	if ReasonNoCatchment(42) != "could not assign to a unit catchment in region #42" {
		t.Errorf("ReasonNoCatchment(42) = %q", ReasonNoCatchment(42))
	}
}

func TestParsePrecision(t *testing.T) {
	for in, want := range map[string]Precision{"high": PrecisionHigh, "hires": PrecisionHigh, "low": PrecisionLow, "lores": PrecisionLow} {
		got, err := ParsePrecision(in)
		if err != nil || got != want {
			t.Errorf("ParsePrecision(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePrecision("medium"); err == nil {
		t.Error("ParsePrecision(medium) should fail")
	}
}
