package input

import (
	"log"

	"vmacro/internal/action"
)

// DryRunInjector logs every injection instead of performing it
type DryRunInjector struct {
	Calls int
}

// NewDryRunInjector creates an injector that never touches the OS
func NewDryRunInjector() *DryRunInjector {
	return &DryRunInjector{}
}

func (d *DryRunInjector) InjectMouseMove(x, y int) error {
	d.Calls++
	log.Printf("DryRun: move to (%d,%d)", x, y)
	return nil
}

func (d *DryRunInjector) InjectMouseButton(button action.Button, pressed bool) error {
	d.Calls++
	log.Printf("DryRun: %s %s", button, pressedWord(pressed))
	return nil
}

func (d *DryRunInjector) InjectKey(keyCode uint32, pressed bool) error {
	d.Calls++
	log.Printf("DryRun: key 0x%02X %s", keyCode, pressedWord(pressed))
	return nil
}

func pressedWord(pressed bool) string {
	if pressed {
		return "down"
	}
	return "up"
}
