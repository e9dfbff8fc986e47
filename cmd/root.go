package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"vmacro/internal/action"
	"vmacro/internal/compiler"
	"vmacro/internal/config"
	"vmacro/internal/osutils"
	"vmacro/internal/protocol"
)

// app carries what every command needs
type app struct {
	configPath string
	cfgMgr     *config.Manager
}

// newRootCmd represents the base command when called without any subcommands.
func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "vmacro",
		Short: "Record and replay mouse and keyboard macros",
		Long: `vmacro records mouse and keyboard input into a plain-text file and
replays it, optionally checking the screen color under every click that
falls inside a click zone.

Quick start:
  vmacro record -o login.vmr --zone 100,200,80,30   # Press Shift+Escape to finish
  vmacro inspect login.vmr
  vmacro play login.vmr --repeat 3 --verify
  vmacro history`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: <user config dir>/vmacro/config.yaml)")

	cmd.AddCommand(a.recordCmd())
	cmd.AddCommand(a.playCmd())
	cmd.AddCommand(a.inspectCmd())
	cmd.AddCommand(a.historyCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vmacro version %s\n", version)
		},
	}
}

func (a *app) loadConfig() error {
	if a.configPath != "" {
		a.cfgMgr = config.NewManagerAt(a.configPath)
	} else {
		var err error
		a.cfgMgr, err = config.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
	}
	if err := a.cfgMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// screenBounds detects the display size, falling back to the configured one
func (a *app) screenBounds() action.Bounds {
	w, h, err := osutils.ScreenSize()
	if err == nil {
		return action.Bounds{Width: w, Height: h}
	}
	if !errors.Is(err, osutils.ErrUnsupportedPlatform) {
		log.Printf("Warning: screen size detection failed: %v", err)
	}
	screen := a.cfgMgr.Get().Screen
	return action.Bounds{Width: screen.Width, Height: screen.Height}
}

// loadRecording imports a recording file and compiles it for playback
func loadRecording(path string, codec protocol.Codec) (*action.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := codec.Import(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rec, err := compiler.Compile(doc.Actions, doc.Zones)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
