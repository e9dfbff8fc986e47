package tray

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeController struct{ paused, resumed, stopped int }

func (f *fakeController) Pause()          { f.paused++ }
func (f *fakeController) Resume()         { f.resumed++ }
func (f *fakeController) Stop()           { f.stopped++ }
func (f *fakeController) Summary() string { return "running" }

func TestNewPlaybackMenu(t *testing.T) {
	ctrl := &fakeController{}
	tr := NewPlayback(ctrl, time.Second)

	var titles []string
	for _, it := range tr.items {
		if it == nil {
			titles = append(titles, "-")
			continue
		}
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"Pause", "Resume", "-", "Stop"}, titles)

	tr.items[0].Callback()
	tr.items[1].Callback()
	assert.Equal(t, 1, ctrl.paused)
	assert.Equal(t, 1, ctrl.resumed)
}

func TestSetTitleBeforeRun(t *testing.T) {
	tr := New("tip")
	assert.Equal(t, "vmacro", tr.Title())
	tr.SetTitle("paused")
	assert.Equal(t, "paused", tr.Title())
}

func TestIconHeader(t *testing.T) {
	icon := getIcon()
	assert.Len(t, icon, 1118)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00}, icon[:6])
}
