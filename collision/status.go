package collision

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// Risk grades how urgently an object needs attention
type Risk int

const (
	// RiskNone is an object clear of the danger zone
	RiskNone Risk = iota
	// RiskCaution is an object whose predicted path crosses the danger zone
	RiskCaution
	// RiskWarning is an object currently inside the danger zone
	RiskWarning
	// RiskDanger is an object within the safety radius that will enter the
	// danger zone
	RiskDanger
)

var riskNames = map[Risk]string{
	RiskNone:    "none",
	RiskCaution: "caution",
	RiskWarning: "warning",
	RiskDanger:  "danger",
}

func (r Risk) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Risk(%d)", int(r))
}

// MarshalText encodes the risk by name
func (r Risk) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a risk name
func (r *Risk) UnmarshalText(b []byte) error {

	for k, name := range riskNames {
		if name == string(b) {
			*r = k
			return nil
		}
	}

	return fmt.Errorf("unknown risk level %q", string(b))
}

// XY is a ground plane point as it appears on the wire
type XY [2]float64

func toXY(p r2.Point) XY {
	return XY{p.X, p.Y}
}

func toXYs(pts []r2.Point) []XY {

	out := make([]XY, len(pts))

	for i, p := range pts {
		out[i] = toXY(p)
	}

	return out
}

// ObjectStatus is the per frame record of one world object
type ObjectStatus struct {
	ID int `json:"id"`
	// Distance is the distance from the object to the vehicle footprint
	Distance float64 `json:"distance"`
	Location XY      `json:"location"`
	Velocity XY      `json:"velocity"`
	Speed    float64 `json:"speed"`
	// Path is the predicted future location, the first point is the current
	// location
	Path              []XY `json:"path"`
	IsInDangerZone    bool `json:"is_in_danger_zone"`
	CrossesDangerZone bool `json:"crosses_danger_zone"`
	// TimeToCollision is the time in seconds until the path enters the
	// danger zone, nil when it never does
	TimeToCollision *float64 `json:"time_to_collision"`
	Risk            Risk     `json:"risk"`
	// History is the recent filtered location trail, oldest first
	History []XY `json:"history,omitempty"`
}

// classify grades an object from its status flags
func classify(st ObjectStatus, withinRadius bool) Risk {

	switch {
	case st.TimeToCollision != nil && *st.TimeToCollision > 0 && withinRadius:
		return RiskDanger
	case st.IsInDangerZone:
		return RiskWarning
	case st.CrossesDangerZone:
		return RiskCaution
	}

	return RiskNone
}
