// Package protocol implements the line-oriented text format recordings are stored in.
//
// Each record is one line of colon-separated fields. The first field is a
// six-character tag selecting the record type:
//
//	MMOVED:x:y:timestampNs
//	MPRESS:button:x:y:rgb:timestampNs
//	MRELEA:button:x:y:rgb:timestampNs
//	KPRESS:keyCode:timestampNs
//	KRELEA:keyCode:timestampNs
//	CZONEE:x:y:width:height
//	WAITNS:durationNs:timestampNs
//
// Tags are matched case-insensitively and always written upper-case. An rgb of
// -1 marks a color that could not be sampled at capture time.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vmacro/internal/action"
)

// Record tags
const (
	TagMouseMoved    = "MMOVED"
	TagMousePress    = "MPRESS"
	TagMouseRelease  = "MRELEA"
	TagKeyPress      = "KPRESS"
	TagKeyRelease    = "KRELEA"
	TagClickZone     = "CZONEE"
	TagWait          = "WAITNS"
	tagLen           = 6
	fieldSep         = ":"
	unsampledField   = "-1"
	unsampledNumeric = -1
)

// field counts including the tag
var fieldCounts = map[string]int{
	TagMouseMoved:   4,
	TagMousePress:   6,
	TagMouseRelease: 6,
	TagKeyPress:     3,
	TagKeyRelease:   3,
	TagClickZone:    5,
	TagWait:         3,
}

// Record is one decoded line: either an action or a click zone
type Record struct {
	Action action.Action
	Zone   action.ClickZone
	zone   bool
}

// IsZone reports whether the record holds a click zone
func (r Record) IsZone() bool { return r.zone }

// Codec converts between actions and text records
type Codec struct {
	// Bounds clamps decoded coordinates. The zero value leaves them unclamped.
	Bounds action.Bounds

	// AllowUnsampled accepts the -1 color sentinel. When false such records are malformed,
	// which is what a verifying import wants.
	AllowUnsampled bool
}

// Encode renders an action as a single record without a trailing newline
func (c Codec) Encode(a action.Action) string {
	ts := strconv.FormatInt(int64(a.Timestamp()), 10)
	switch a.Kind() {
	case action.KindMouseMove:
		return join(TagMouseMoved, itoa(a.X()), itoa(a.Y()), ts)
	case action.KindMousePress:
		return join(TagMousePress, itoa(int(a.Button())), itoa(a.X()), itoa(a.Y()), encodeColor(a.Color()), ts)
	case action.KindMouseRelease:
		return join(TagMouseRelease, itoa(int(a.Button())), itoa(a.X()), itoa(a.Y()), encodeColor(a.Color()), ts)
	case action.KindKeyPress:
		return join(TagKeyPress, strconv.FormatUint(uint64(a.KeyCode()), 10), ts)
	case action.KindKeyRelease:
		return join(TagKeyRelease, strconv.FormatUint(uint64(a.KeyCode()), 10), ts)
	case action.KindWait:
		return join(TagWait, strconv.FormatInt(int64(a.Duration()), 10), ts)
	}
	// Actions can only be built through the constructors, so this is the zero Action.
	return ""
}

// EncodeZone renders a click zone record
func (c Codec) EncodeZone(z action.ClickZone) string {
	return join(TagClickZone, itoa(z.X), itoa(z.Y), itoa(z.Width), itoa(z.Height))
}

// Decode parses a single record
func (c Codec) Decode(line string) (Record, error) {
	fields := strings.Split(strings.TrimSpace(line), fieldSep)
	tag := strings.ToUpper(fields[0])

	want, ok := fieldCounts[tag]
	if !ok || len(fields[0]) != tagLen {
		return Record{}, fmt.Errorf("%w: tag %q", ErrUnsupported, fields[0])
	}
	if len(fields) != want {
		return Record{}, fmt.Errorf("%w: %s expects %d fields, got %d", ErrMalformed, tag, want-1, len(fields)-1)
	}

	p := fieldParser{fields: fields[1:]}
	var (
		a   action.Action
		err error
	)
	switch tag {
	case TagClickZone:
		x, y, w, h := p.intField(), p.intField(), p.intField(), p.intField()
		if p.err != nil {
			return Record{}, p.err
		}
		z, err := action.NewClickZone(x, y, w, h)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Record{Zone: z, zone: true}, nil

	case TagMouseMoved:
		x, y, ts := p.intField(), p.intField(), p.nanosField()
		if p.err != nil {
			return Record{}, p.err
		}
		x, y = c.Bounds.Clamp(x, y)
		a, err = action.NewMouseMove(c.Bounds, ts, x, y)

	case TagMousePress, TagMouseRelease:
		btn, x, y, col, ts := p.intField(), p.intField(), p.intField(), p.colorField(c.AllowUnsampled), p.nanosField()
		if p.err != nil {
			return Record{}, p.err
		}
		x, y = c.Bounds.Clamp(x, y)
		if tag == TagMousePress {
			a, err = action.NewMousePress(c.Bounds, ts, toButton(btn), x, y, col)
		} else {
			a, err = action.NewMouseRelease(c.Bounds, ts, toButton(btn), x, y, col)
		}

	case TagKeyPress, TagKeyRelease:
		code, ts := p.uintField(), p.nanosField()
		if p.err != nil {
			return Record{}, p.err
		}
		if tag == TagKeyPress {
			a, err = action.NewKeyPress(ts, code)
		} else {
			a, err = action.NewKeyRelease(ts, code)
		}

	case TagWait:
		d, ts := p.nanosField(), p.nanosField()
		if p.err != nil {
			return Record{}, p.err
		}
		a, err = action.NewWait(ts, d)
	}

	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Record{Action: a}, nil
}

// IsZoneLine reports whether a raw line carries the click-zone tag
func IsZoneLine(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= tagLen && strings.EqualFold(line[:tagLen], TagClickZone) &&
		(len(line) == tagLen || line[tagLen:tagLen+1] == fieldSep)
}

func encodeColor(c action.Color) string {
	if !c.Sampled() {
		return unsampledField
	}
	return strconv.FormatUint(uint64(c), 10)
}

// toButton keeps out-of-range numbers from wrapping into a valid button
func toButton(n int) action.Button {
	if n < 0 || n > 255 {
		return 0
	}
	return action.Button(n)
}

func join(fields ...string) string { return strings.Join(fields, fieldSep) }

func itoa(v int) string { return strconv.Itoa(v) }

// fieldParser consumes fields in order and remembers the first failure
type fieldParser struct {
	fields []string
	pos    int
	err    error
}

func (p *fieldParser) next() string {
	f := p.fields[p.pos]
	p.pos++
	return f
}

func (p *fieldParser) fail(f, want string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: field %d %q is not %s: %v", ErrMalformed, p.pos, f, want, err)
	}
}

func (p *fieldParser) intField() int {
	f := p.next()
	v, err := strconv.Atoi(f)
	if err != nil {
		p.fail(f, "an integer", err)
	}
	return v
}

func (p *fieldParser) uintField() uint32 {
	f := p.next()
	v, err := strconv.ParseUint(f, 10, 32)
	if err != nil {
		p.fail(f, "an unsigned 32-bit integer", err)
	}
	return uint32(v)
}

func (p *fieldParser) nanosField() time.Duration {
	f := p.next()
	v, err := strconv.ParseInt(f, 10, 64)
	if err == nil && v < 0 {
		err = fmt.Errorf("negative")
	}
	if err != nil {
		p.fail(f, "a non-negative nanosecond count", err)
	}
	return time.Duration(v)
}

func (p *fieldParser) colorField(allowUnsampled bool) action.Color {
	f := p.next()
	v, err := strconv.ParseInt(f, 10, 64)
	switch {
	case err != nil:
	case v == unsampledNumeric && allowUnsampled:
		return action.Unsampled
	case v == unsampledNumeric:
		err = fmt.Errorf("color was not sampled at capture time")
	case v < 0 || v > int64(action.MaxColor):
		err = fmt.Errorf("out of range 0..%d", action.MaxColor)
	}
	if err != nil {
		p.fail(f, "an RGB color", err)
		return 0
	}
	return action.Color(v)
}
