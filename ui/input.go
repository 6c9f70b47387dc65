package ui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// keymap is the default binding; reading per-button overrides from
// config.Config.Input is left as a follow-up since no caller needs it
// yet.
var keymap = map[fyne.KeyName]int{
	fyne.KeyZ:          0, // A
	fyne.KeyX:          1, // B
	fyne.KeyRightShift: 2, // Select
	fyne.KeyReturn:     3, // Start
	fyne.KeyUp:         4,
	fyne.KeyDown:       5,
	fyne.KeyLeft:       6,
	fyne.KeyRight:      7,
}

// buttonState is a goroutine-safe [8]bool snapshot target, written by
// the fyne key event callbacks and read once per video frame.
type buttonState struct {
	mu  sync.Mutex
	set [8]bool
}

func (b *buttonState) snapshot() [8]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set
}

func (b *buttonState) setKey(name fyne.KeyName, down bool) {
	idx, ok := keymap[name]
	if !ok {
		return
	}
	b.mu.Lock()
	b.set[idx] = down
	b.mu.Unlock()
}

// pollButtons wires key-down/key-up handlers on the window's desktop
// canvas. desktop.Canvas is implemented on every platform this driver
// targets.
func pollButtons(w fyne.Window) *buttonState {
	state := &buttonState{}
	if dc, ok := w.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(e *fyne.KeyEvent) { state.setKey(e.Name, true) })
		dc.SetOnKeyUp(func(e *fyne.KeyEvent) { state.setKey(e.Name, false) })
	}
	return state
}
