// Package overlay draws tactical findings onto frames and produces optional
// summary infographics.
//
// Painter renders soldier rings with threat-axis arrows, translucent
// blindspot boxes with captions, a color-banded score badge, a timestamp
// box, and the cover and formation lines. Text uses the basicfont bitmap
// face from golang.org/x/image.
//
// Infographic generation sits behind InfographicGenerator so the rest of the
// pipeline never depends on an image model being available; Disabled and
// model replies without an image both yield ErrUnsupported.
package overlay
