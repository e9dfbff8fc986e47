// Package tray shows playback status in the system tray and offers
// Pause, Resume and Stop controls, using getlantern/systray.
package tray

import (
	"sync"
	"time"

	"github.com/getlantern/systray"
)

// Controller is what the tray drives, typically a queue orchestrator
type Controller interface {
	Pause()
	Resume()
	Stop()
	// Summary is a one-line status shown as the tray title
	Summary() string
}

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	mu      sync.Mutex
	items   []*MenuItem
	title   string
	tooltip string
	readyCh chan struct{}
	quitCh  chan struct{}
}

// New creates a new system tray
func New(tooltip string) *Tray {
	return &Tray{
		items:   make([]*MenuItem, 0),
		title:   "vmacro",
		tooltip: tooltip,
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// NewPlayback creates a tray with Pause, Resume and Stop items for ctrl.
// The title follows ctrl.Summary every refresh interval once the tray runs.
func NewPlayback(ctrl Controller, refresh time.Duration) *Tray {
	t := New("vmacro - playback")
	t.AddMenuItem("Pause", ctrl.Pause)
	t.AddMenuItem("Resume", ctrl.Resume)
	t.AddSeparator()
	t.AddMenuItem("Stop", func() {
		ctrl.Stop()
		t.Stop()
	})

	go func() {
		select {
		case <-t.readyCh:
		case <-t.quitCh:
			return
		}
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for {
			t.SetTitle(ctrl.Summary())
			select {
			case <-ticker.C:
			case <-t.quitCh:
				return
			}
		}
	}()
	return t
}

// AddMenuItem adds a menu item to the tray. Items must be added before Run.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Callback: callback,
	})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// SetTitle updates the tray title. Before Run it sets the initial title.
func (t *Tray) SetTitle(title string) {
	t.mu.Lock()
	t.title = title
	t.mu.Unlock()

	select {
	case <-t.readyCh:
		systray.SetTitle(title)
	default:
	}
}

// Title returns the current title
func (t *Tray) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// Run starts the tray event loop (blocks). On macOS it must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.mu.Lock()
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(getIcon())
	items := append([]*MenuItem(nil), t.items...)
	t.mu.Unlock()

	for _, menuItem := range items {
		if menuItem == nil {
			// Separator
			systray.AddSeparator()
			continue
		}
		menuItem.item = systray.AddMenuItem(menuItem.Title, "")

		// Handle clicks in goroutine
		if menuItem.Callback != nil {
			go func(mi *MenuItem) {
				for {
					select {
					case <-mi.item.ClickedCh:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem)
		}
	}
	close(t.readyCh)
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	// A valid 16x16 32-bit ICO file with correct size and DIB header
	icon := make([]byte, 1118)
	// ICO Header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00, // Size: 1024 (pixels) + 40 (header) + 32 (mask) = 1096 bytes
		0x16, 0x00, 0x00, 0x00, // Offset
	})
	// DIB Header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // Size
		0x10, 0x00, 0x00, 0x00, // Width
		0x20, 0x00, 0x00, 0x00, // Height (16 * 2 for icon)
		0x01, 0x00, // Planes
		0x20, 0x00, // BPP
		0x00, 0x00, 0x00, 0x00, // Compression
		0x00, 0x04, 0x00, 0x00, // Image Size
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	// The rest (pixels and mask) can stay 0 for transparency
	return icon
}
