// Package ui is the peripheral driver: a window, an audio stream and
// the controller poll loop that spec.md §1 explicitly keeps outside
// the emulator core. It depends on the core only through nes.Bus's
// public surface (FrameBuffer, SetButtons, RunFrame).
package ui

import (
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"github.com/hexfault/nesgo/config"
	"github.com/hexfault/nesgo/nes"
)

// logDriver mirrors nes/log.go's per-component logrus.Entry pattern
// for this package's own "component=ui" field.
var logDriver = logrus.WithField("component", "ui")

const (
	screenW = 256
	screenH = 240
)

// Run owns the fyne event loop and a portaudio output stream, and
// drives the bus one video frame per tick of a 60 Hz ticker, then
// refreshes the view. It blocks until the window is closed.
func Run(bus *nes.Bus, cfg config.Config) error {
	a := app.New()
	w := a.NewWindow("nesgo")

	img := image.NewRGBA(image.Rect(0, 0, screenW, screenH))
	view := canvas.NewImageFromImage(img)
	view.FillMode = canvas.ImageFillContain
	view.ScaleMode = canvas.ImageScalePixels

	scale := cfg.Video.Scale
	if scale <= 0 {
		scale = 3
	}
	w.Resize(fyne.NewSize(float32(screenW*scale), float32(screenH*scale)))
	w.SetContent(view)

	buttons := pollButtons(w)

	var stream *portaudio.Stream
	if !cfg.Audio.Mute {
		var err error
		stream, err = startAudio(bus)
		if err != nil {
			return err
		}
		defer stream.Close()
	}

	go func() {
		ticker := time.NewTicker(time.Second / 60)
		defer ticker.Stop()
		for range ticker.C {
			bus.SetButtons(buttons.snapshot())
			if _, err := bus.RunFrame(); err != nil {
				logFatalInvariant(err)
				return
			}
			blit(img, bus.FrameBuffer())
			view.Refresh()
		}
	}()

	w.ShowAndRun()
	return nil
}

// blit unpacks the PPU's packed 0xRRGGBBAA words into the canvas
// image's byte-per-channel buffer.
func blit(img *image.RGBA, fb *[screenW * screenH]uint32) {
	for i, px := range fb {
		img.Pix[i*4+0] = byte(px >> 24)
		img.Pix[i*4+1] = byte(px >> 16)
		img.Pix[i*4+2] = byte(px >> 8)
		img.Pix[i*4+3] = byte(px)
	}
}

func logFatalInvariant(err error) {
	if ie, ok := err.(*nes.InvariantError); ok {
		logDriver.WithField("dump", string(ie.DumpJSON())).Error(ie.Error())
		return
	}
	logDriver.Error(err.Error())
}
