package ui

import (
	"github.com/gordonklaus/portaudio"

	"github.com/hexfault/nesgo/nes"
)

const framesPerBuffer = 512

// startAudio opens a mono 44,100 Hz output stream and pulls samples
// out of the APU's ring on every callback, converting int16 PCM to
// the float32 portaudio expects.
func startAudio(bus *nes.Bus) (*portaudio.Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	var pending []int16
	callback := func(out []float32) {
		for i := range out {
			if len(pending) == 0 {
				out[i] = 0
				continue
			}
			out[i] = float32(pending[0]) / 32768
			pending = pending[1:]
		}
		pending = append(pending, bus.APU.TakeSamples()...)
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, 44100, framesPerBuffer, callback)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		return nil, err
	}
	return stream, nil
}
