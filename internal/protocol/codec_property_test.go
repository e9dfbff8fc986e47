package protocol

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"vmacro/internal/action"
)

// TestRoundTripProperties checks Decode(Encode(x)) == x for every constructible record.
func TestRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	c := Codec{Bounds: screen, AllowUnsampled: true}

	roundTrips := func(a action.Action, err error) bool {
		if err != nil {
			return false
		}
		rec, err := c.Decode(c.Encode(a))
		return err == nil && !rec.IsZone() && rec.Action.Equal(a)
	}

	properties.Property("mouse moves round-trip", prop.ForAll(
		func(x, y int, ts int64) bool {
			return roundTrips(action.NewMouseMove(screen, time.Duration(ts), x, y))
		},
		gen.IntRange(0, screen.Width),
		gen.IntRange(0, screen.Height),
		gen.Int64Range(0, 1<<62),
	))

	properties.Property("button events round-trip", prop.ForAll(
		func(btn, x, y, rgb int, press bool, ts int64) bool {
			col := action.Color(rgb)
			if rgb < 0 {
				col = action.Unsampled
			}
			if press {
				return roundTrips(action.NewMousePress(screen, time.Duration(ts), action.Button(btn), x, y, col))
			}
			return roundTrips(action.NewMouseRelease(screen, time.Duration(ts), action.Button(btn), x, y, col))
		},
		gen.IntRange(1, 3),
		gen.IntRange(0, screen.Width),
		gen.IntRange(0, screen.Height),
		gen.IntRange(-1, int(action.MaxColor)),
		gen.Bool(),
		gen.Int64Range(0, 1<<62),
	))

	properties.Property("key events round-trip", prop.ForAll(
		func(code uint32, press bool, ts int64) bool {
			if press {
				return roundTrips(action.NewKeyPress(time.Duration(ts), code))
			}
			return roundTrips(action.NewKeyRelease(time.Duration(ts), code))
		},
		gen.UInt32(),
		gen.Bool(),
		gen.Int64Range(0, 1<<62),
	))

	properties.Property("waits round-trip", prop.ForAll(
		func(d, ts int64) bool {
			return roundTrips(action.NewWait(time.Duration(ts), time.Duration(d)))
		},
		gen.Int64Range(0, 1<<62),
		gen.Int64Range(0, 1<<62),
	))

	properties.Property("click zones round-trip", prop.ForAll(
		func(x, y, w, h int) bool {
			z, err := action.NewClickZone(x, y, w, h)
			if err != nil {
				return false
			}
			rec, err := c.Decode(c.EncodeZone(z))
			return err == nil && rec.IsZone() && rec.Zone == z
		},
		gen.IntRange(0, 4000),
		gen.IntRange(0, 4000),
		gen.IntRange(1, 4000),
		gen.IntRange(1, 4000),
	))

	properties.TestingRun(t)
}

// TestImportAtomicityProperty checks that well-formed files decode completely and
// that a single corrupted line always fails the whole import.
func TestImportAtomicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	c := Codec{Bounds: screen}

	properties.Property("well-formed files decode every action line", prop.ForAll(
		func(codes []uint32, zones int) bool {
			var lines []string
			for i, code := range codes {
				a, err := action.NewKeyPress(time.Duration(i), code)
				if err != nil {
					return false
				}
				lines = append(lines, c.Encode(a))
			}
			for i := 0; i < zones; i++ {
				lines = append(lines, c.EncodeZone(action.ClickZone{X: i, Y: i, Width: 1, Height: 1}))
			}
			doc, err := c.DecodeLines(lines)
			return err == nil && len(doc.Actions) == len(codes) && len(doc.Zones) == zones
		},
		gen.SliceOf(gen.UInt32()),
		gen.IntRange(0, 5),
	))

	properties.Property("one malformed line fails the import", prop.ForAll(
		func(codes []uint32, at int) bool {
			lines := make([]string, 0, len(codes)+1)
			for i, code := range codes {
				a, err := action.NewKeyRelease(time.Duration(i), code)
				if err != nil {
					return false
				}
				lines = append(lines, c.Encode(a))
			}
			pos := at % (len(lines) + 1)
			lines = append(lines[:pos], append([]string{"KPRESS:not-a-number:1"}, lines[pos:]...)...)

			doc, err := c.DecodeLines(lines)
			lineErr, ok := err.(*LineError)
			return doc == nil && ok && lineErr.Line == pos+1
		},
		gen.SliceOf(gen.UInt32()),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
