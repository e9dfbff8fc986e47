package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"vmacro/internal/action"
)

// Document is the decoded content of a recording file
type Document struct {
	Actions []action.Action
	Zones   []action.ClickZone
}

type numberedLine struct {
	n    int
	text string
}

// Import reads every line from r and decodes it. Any failure aborts the whole import.
func (c Codec) Import(r io.Reader) (*Document, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("protocol: read recording: %w", err)
	}
	return c.DecodeLines(lines)
}

// DecodeLines partitions lines into zone and action records, then decodes each group.
// Action order is preserved; zones may appear anywhere. Blank lines are ignored.
// The failure on the lowest line number is returned as a *LineError and no
// partial document is produced.
func (c Codec) DecodeLines(lines []string) (*Document, error) {
	var zoneLines, actionLines []numberedLine
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		nl := numberedLine{n: i + 1, text: l}
		if IsZoneLine(l) {
			zoneLines = append(zoneLines, nl)
		} else {
			actionLines = append(actionLines, nl)
		}
	}

	doc := &Document{
		Zones:   make([]action.ClickZone, 0, len(zoneLines)),
		Actions: make([]action.Action, 0, len(actionLines)),
	}

	var first *LineError
	fail := func(l numberedLine, err error) {
		if first == nil || l.n < first.Line {
			first = &LineError{Line: l.n, Text: l.text, Err: err}
		}
	}

	for _, l := range zoneLines {
		rec, err := c.Decode(l.text)
		if err != nil {
			fail(l, err)
			break
		}
		doc.Zones = append(doc.Zones, rec.Zone)
	}

	for _, l := range actionLines {
		if first != nil && l.n > first.Line {
			break
		}
		rec, err := c.Decode(l.text)
		if err != nil {
			fail(l, err)
			break
		}
		doc.Actions = append(doc.Actions, rec.Action)
	}

	if first != nil {
		return nil, first
	}
	return doc, nil
}

// Export writes zone records followed by action records, one per line
func (c Codec) Export(w io.Writer, actions []action.Action, zones []action.ClickZone) error {
	bw := bufio.NewWriter(w)
	for _, z := range zones {
		if _, err := bw.WriteString(c.EncodeZone(z) + "\n"); err != nil {
			return fmt.Errorf("protocol: write zone: %w", err)
		}
	}
	for i, a := range actions {
		line := c.Encode(a)
		if line == "" {
			return fmt.Errorf("protocol: write action %d: %w", i, &action.UnsupportedActionError{Index: i, Kind: a.Kind()})
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("protocol: write action %d: %w", i, err)
		}
	}
	return bw.Flush()
}
