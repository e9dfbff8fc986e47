package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vmacro/internal/action"
	"vmacro/internal/capture"
	"vmacro/internal/input"
	"vmacro/internal/osutils"
	"vmacro/internal/protocol"
)

func (a *app) recordCmd() *cobra.Command {
	var (
		output  string
		zones   []string
		chord   string
		maxRate float64
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record mouse and keyboard input to a file",
		Long: `Record mouse and keyboard input until the cancel chord is held
(Shift+Escape by default) or Ctrl+C is pressed.

Click zones mark screen areas whose colors are checked on playback.

Examples:
  vmacro record -o login.vmr
  vmacro record -o login.vmr --zone 100,200,80,30 --zone 0,0,50,50
  vmacro record -o login.vmr --chord Ctrl+Alt+Q --max-move-rate 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfgMgr.Get()
			if !cmd.Flags().Changed("chord") {
				chord = cfg.Capture.CancelChord
			}
			if !cmd.Flags().Changed("max-move-rate") {
				maxRate = cfg.Capture.MaxMoveRate
			}

			var parsed []action.ClickZone
			for _, z := range zones {
				zone, err := parseZone(z)
				if err != nil {
					return err
				}
				parsed = append(parsed, zone)
			}

			if runtime.GOOS == "windows" && !osutils.IsAdmin() {
				log.Println("Warning: not elevated, input sent to elevated windows will not be recorded")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			bounds := a.screenBounds()
			p := capture.New(input.NewHook(), input.NewColorReader(), capture.Config{
				CancelChord: chord,
				KeyMap:      input.NativeKeyMap(),
				Bounds:      bounds,
				MaxMoveRate: maxRate,
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "Recording, hold %s to finish...\n", chord)
			q, err := p.Run(ctx)
			if err != nil {
				return err
			}

			n, err := writeRecording(output, q.Lines(), parsed, bounds)
			if err != nil {
				return err
			}

			st := p.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Recorded "+output))
			fmt.Fprintln(out, field("actions", strconv.Itoa(n)))
			fmt.Fprintln(out, field("click zones", strconv.Itoa(len(parsed))))
			if st.Unsampled > 0 {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%d clicks have no color and cannot be verified", st.Unsampled)))
			}
			if st.SkippedKeys > 0 {
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d unmapped keys skipped", st.SkippedKeys)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Recording file to write")
	cmd.Flags().StringArrayVar(&zones, "zone", nil, "Click zone as x,y,width,height (repeatable)")
	cmd.Flags().StringVar(&chord, "chord", capture.DefaultCancelChord, "Key chord that ends the recording")
	cmd.Flags().Float64Var(&maxRate, "max-move-rate", 0, "Maximum recorded mouse moves per second, 0 = unlimited")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// writeRecording decodes captured lines and exports them with zones to path
func writeRecording(path string, lines []string, zones []action.ClickZone, bounds action.Bounds) (int, error) {
	codec := protocol.Codec{Bounds: bounds, AllowUnsampled: true}
	doc, err := codec.DecodeLines(lines)
	if err != nil {
		return 0, err
	}
	zones = append(zones, doc.Zones...)

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := codec.Export(f, doc.Actions, zones); err != nil {
		f.Close()
		return 0, err
	}
	return len(doc.Actions), f.Close()
}

// parseZone parses "x,y,width,height"
func parseZone(s string) (action.ClickZone, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return action.ClickZone{}, fmt.Errorf("invalid zone %q, want x,y,width,height", s)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return action.ClickZone{}, fmt.Errorf("invalid zone %q: %w", s, err)
		}
		n[i] = v
	}
	return action.NewClickZone(n[0], n[1], n[2], n[3])
}
