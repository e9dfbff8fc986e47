package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vmacro/internal/action"
	"vmacro/internal/protocol"
)

func (a *app) inspectCmd() *cobra.Command {
	var showLines bool
	cmd := &cobra.Command{
		Use:   "inspect <recording>",
		Short: "Summarize a recording file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := protocol.Codec{AllowUnsampled: true}
			rec, err := loadRecording(args[0], codec)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, describe(args[0], rec))
			if showLines {
				for i, act := range rec.Actions() {
					fmt.Fprintf(out, "%5d  %s\n", i, dimStyle.Render(codec.Encode(act)))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showLines, "lines", false, "Also print every compiled action")
	return cmd
}

// recordingSummary counts what a recording contains
type recordingSummary struct {
	perKind   map[action.Kind]int
	unsampled int
	verified  int // clicks inside a click zone with a sampled color
}

func summarize(rec *action.Recording) recordingSummary {
	s := recordingSummary{perKind: make(map[action.Kind]int)}
	for _, act := range rec.Actions() {
		s.perKind[act.Kind()]++
		switch act.Kind() {
		case action.KindMousePress, action.KindMouseRelease:
			if !act.Color().Sampled() {
				s.unsampled++
			} else if rec.InAnyZone(act.X(), act.Y()) {
				s.verified++
			}
		}
	}
	return s
}

func describe(name string, rec *action.Recording) string {
	s := summarize(rec)
	out := titleStyle.Render(name) + "\n"
	out += field("actions", strconv.Itoa(rec.Len())) + "\n"
	out += field("duration", formatDuration(rec.Duration())) + "\n"
	for _, k := range []action.Kind{
		action.KindMouseMove, action.KindMousePress, action.KindMouseRelease,
		action.KindKeyPress, action.KindKeyRelease, action.KindWait,
	} {
		if n := s.perKind[k]; n > 0 {
			out += field("  "+k.String(), strconv.Itoa(n)) + "\n"
		}
	}
	zones := rec.Zones()
	out += field("click zones", strconv.Itoa(len(zones))) + "\n"
	for _, z := range zones {
		out += field("", z.String()) + "\n"
	}
	out += field("verifiable", strconv.Itoa(s.verified)) + "\n"
	if s.unsampled > 0 {
		out += warnStyle.Render(fmt.Sprintf("%d button events have no recorded color", s.unsampled)) + "\n"
	}
	return out
}
