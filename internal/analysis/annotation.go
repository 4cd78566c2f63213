package analysis

import "strings"

// Annotation is the drawable layout the vision service returns for a frame.
// All coordinates and sizes are percentages of the frame dimensions.
type Annotation struct {
	Soldiers   []SoldierMarker `json:"soldiers"`
	Blindspots []Blindspot     `json:"blindspots"`
}

// Point is a position in percent of width (X) and height (Y).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ThreatAxis points from a soldier toward the direction they cover.
// Direction is in degrees clockwise from the +X axis; Length is a percent of
// the shorter frame side.
type ThreatAxis struct {
	Direction float64 `json:"direction"`
	Length    float64 `json:"length"`
}

// SoldierMarker is one soldier and their threat axis.
type SoldierMarker struct {
	Position   Point      `json:"position"`
	ThreatAxis ThreatAxis `json:"threat_axis"`
}

// Area is a rectangle in percent coordinates, anchored at its top-left.
type Area struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Blindspot is an uncovered sector.
type Blindspot struct {
	Area     Area   `json:"area"`
	Severity string `json:"severity"`
	Caption  string `json:"caption"`
}

// HighSeverity reports whether the blindspot is marked "high".
func (b Blindspot) HighSeverity() bool {
	return strings.EqualFold(strings.TrimSpace(b.Severity), "high")
}

// Empty reports whether there is nothing to draw.
func (a Annotation) Empty() bool {
	return len(a.Soldiers) == 0 && len(a.Blindspots) == 0
}

// HighThreats returns at most limit threats whose level is "high", in order.
func (f FrameAnalysis) HighThreats(limit int) []Threat {
	var out []Threat
	for _, threat := range f.PrimaryThreats {
		if len(out) == limit {
			break
		}
		if strings.EqualFold(strings.TrimSpace(threat.ThreatLevel), "high") {
			out = append(out, threat)
		}
	}
	return out
}
