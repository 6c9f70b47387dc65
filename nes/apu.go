package nes

import (
	"sync"

	"github.com/arl/blip"
)

// lengthTable is the 32-entry length-counter load LUT shared by every
// channel (spec.md §4.5, Pulse register map byte 3).
var lengthTable = [32]byte{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

var dutyTable = [4][8]byte{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

var triangleTable = [32]byte{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

var noisePeriodTable = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

var dmcRateTable = [16]uint16{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

var pulseLUT [31]float32
var tndLUT [203]float32

func init() {
	for i := range pulseLUT {
		if i == 0 {
			continue
		}
		pulseLUT[i] = 95.52 / (8128/float32(i) + 100)
	}
	for i := range tndLUT {
		if i == 0 {
			continue
		}
		tndLUT[i] = 163.67 / (24329/float32(i) + 100)
	}
}

type envelope struct {
	start    bool
	loop     bool
	constant bool
	period   byte
	divider  byte
	decay    byte
}

func (e *envelope) clock() {
	if e.start {
		e.start = false
		e.decay = 15
		e.divider = e.period
		return
	}
	if e.divider > 0 {
		e.divider--
		return
	}
	e.divider = e.period
	if e.decay > 0 {
		e.decay--
	} else if e.loop {
		e.decay = 15
	}
}

func (e *envelope) output() byte {
	if e.constant {
		return e.period
	}
	return e.decay
}

type sweep struct {
	enabled bool
	period  byte
	negate  bool
	shift   byte
	reload  bool
	divider byte
}

type pulse struct {
	enabled     bool
	channel2    bool // true selects pulse 2's two's-complement negate; pulse 1 negates in one's complement
	duty        byte
	dutyPos     byte
	lengthHalt  bool
	lengthValue byte
	timerPeriod uint16
	timer       uint16
	env         envelope
	sweep       sweep
}

func (p *pulse) writeByte0(v byte) {
	p.duty = v >> 6
	p.lengthHalt = v&0x20 != 0
	p.env.loop = p.lengthHalt
	p.env.constant = v&0x10 != 0
	p.env.period = v & 0x0F
}

func (p *pulse) writeByte1(v byte) {
	p.sweep.enabled = v&0x80 != 0
	p.sweep.period = (v >> 4) & 0x07
	p.sweep.negate = v&0x08 != 0
	p.sweep.shift = v & 0x07
	p.sweep.reload = true
}

func (p *pulse) writeByte2(v byte) {
	p.timerPeriod = p.timerPeriod&0xFF00 | uint16(v)
}

func (p *pulse) writeByte3(v byte) {
	p.timerPeriod = p.timerPeriod&0x00FF | uint16(v&0x07)<<8
	if p.enabled {
		p.lengthValue = lengthTable[v>>3]
	}
	p.dutyPos = 0
	p.env.start = true
}

func (p *pulse) stepTimer() {
	if p.timer == 0 {
		p.timer = p.timerPeriod
		p.dutyPos = (p.dutyPos + 1) % 8
	} else {
		p.timer--
	}
}

func (p *pulse) stepLength() {
	if !p.lengthHalt && p.lengthValue > 0 {
		p.lengthValue--
	}
}

func (p *pulse) targetPeriod() uint16 {
	delta := int(p.timerPeriod) >> p.sweep.shift
	if p.sweep.negate {
		delta = -delta
		if !p.channel2 {
			delta--
		}
	}
	target := int(p.timerPeriod) + delta
	if target < 0 {
		target = 0
	}
	return uint16(target)
}

func (p *pulse) muted() bool { return p.timerPeriod < 8 || p.targetPeriod() > 0x7FF }

func (p *pulse) stepSweep() {
	if p.sweep.divider == 0 && p.sweep.enabled && p.sweep.shift > 0 && !p.muted() {
		p.timerPeriod = p.targetPeriod()
	}
	if p.sweep.divider == 0 || p.sweep.reload {
		p.sweep.divider = p.sweep.period
		p.sweep.reload = false
	} else {
		p.sweep.divider--
	}
}

func (p *pulse) output() byte {
	if !p.enabled || p.lengthValue == 0 || p.muted() || dutyTable[p.duty][p.dutyPos] == 0 {
		return 0
	}
	return p.env.output()
}

type triangle struct {
	enabled       bool
	lengthHalt    bool
	lengthValue   byte
	linearPeriod  byte
	linearValue   byte
	linearReload  bool
	timerPeriod   uint16
	timer         uint16
	sequencerStep byte
}

func (t *triangle) writeByte0(v byte) {
	t.lengthHalt = v&0x80 != 0
	t.linearPeriod = v & 0x7F
}
func (t *triangle) writeByte2(v byte) { t.timerPeriod = t.timerPeriod&0xFF00 | uint16(v) }
func (t *triangle) writeByte3(v byte) {
	t.timerPeriod = t.timerPeriod&0x00FF | uint16(v&0x07)<<8
	if t.enabled {
		t.lengthValue = lengthTable[v>>3]
	}
	t.linearReload = true
}

func (t *triangle) stepTimer() {
	if t.timer == 0 {
		t.timer = t.timerPeriod
		if t.lengthValue > 0 && t.linearValue > 0 {
			t.sequencerStep = (t.sequencerStep + 1) % 32
		}
	} else {
		t.timer--
	}
}

func (t *triangle) stepLinear() {
	if t.linearReload {
		t.linearValue = t.linearPeriod
	} else if t.linearValue > 0 {
		t.linearValue--
	}
	if !t.lengthHalt {
		t.linearReload = false
	}
}

func (t *triangle) stepLength() {
	if !t.lengthHalt && t.lengthValue > 0 {
		t.lengthValue--
	}
}

func (t *triangle) output() byte {
	if !t.enabled || t.lengthValue == 0 || t.linearValue == 0 || t.timerPeriod < 2 {
		return triangleTable[t.sequencerStep]
	}
	return triangleTable[t.sequencerStep]
}

type noise struct {
	enabled     bool
	mode        bool
	lengthHalt  bool
	lengthValue byte
	timerPeriod uint16
	timer       uint16
	env         envelope
	shift       uint16
}

func newNoise() *noise { return &noise{shift: 1} }

func (n *noise) writeByte0(v byte) {
	n.lengthHalt = v&0x20 != 0
	n.env.loop = n.lengthHalt
	n.env.constant = v&0x10 != 0
	n.env.period = v & 0x0F
}

func (n *noise) writeByte2(v byte) {
	n.mode = v&0x80 != 0
	n.timerPeriod = noisePeriodTable[v&0x0F]
}

func (n *noise) writeByte3(v byte) {
	if n.enabled {
		n.lengthValue = lengthTable[v>>3]
	}
	n.env.start = true
}

func (n *noise) stepTimer() {
	if n.timer == 0 {
		n.timer = n.timerPeriod
		bit := uint16(1)
		if n.mode {
			bit = 6
		}
		feedback := (n.shift ^ (n.shift >> bit)) & 1
		n.shift >>= 1
		n.shift |= feedback << 14
	} else {
		n.timer--
	}
}

func (n *noise) stepLength() {
	if !n.lengthHalt && n.lengthValue > 0 {
		n.lengthValue--
	}
}

func (n *noise) output() byte {
	if !n.enabled || n.lengthValue == 0 || n.shift&1 != 0 {
		return 0
	}
	return n.env.output()
}

// dmc is a simplified delta-modulation channel: it fetches sample
// bytes straight from the Bus's CPU address space rather than
// stalling the CPU for the DMA cycle (DESIGN.md lists this as a known
// simplification).
type dmc struct {
	bus *Bus

	enabled    bool
	loop       bool
	irqEnabled bool
	rate       uint16
	timer      uint16

	sampleAddr   uint16
	sampleLength uint16
	curAddr      uint16
	curLength    uint16

	shiftRegister byte
	bitsRemaining byte
	output        byte
	silence       bool
}

func (d *dmc) writeByte0(v byte) {
	d.irqEnabled = v&0x80 != 0
	d.loop = v&0x40 != 0
	d.rate = dmcRateTable[v&0x0F]
}

func (d *dmc) writeByte1(v byte) { d.output = v & 0x7F }
func (d *dmc) writeByte2(v byte) { d.sampleAddr = 0xC000 | uint16(v)<<6 }
func (d *dmc) writeByte3(v byte) { d.sampleLength = uint16(v)<<4 | 1 }

func (d *dmc) restart() {
	d.curAddr = d.sampleAddr
	d.curLength = d.sampleLength
}

func (d *dmc) stepTimer() {
	if !d.enabled {
		return
	}
	if d.timer == 0 {
		d.timer = d.rate
		if !d.silence {
			if d.shiftRegister&1 != 0 {
				if d.output <= 125 {
					d.output += 2
				}
			} else if d.output >= 2 {
				d.output -= 2
			}
		}
		d.shiftRegister >>= 1
		if d.bitsRemaining > 0 {
			d.bitsRemaining--
		}
		if d.bitsRemaining == 0 {
			d.bitsRemaining = 8
			if d.curLength == 0 {
				d.silence = true
				if d.loop {
					d.restart()
					d.silence = false
				}
			} else {
				d.shiftRegister = d.bus.cpuRead(d.curAddr)
				d.silence = false
				d.curAddr++
				if d.curAddr == 0 {
					d.curAddr = 0x8000
				}
				d.curLength--
			}
		}
	} else {
		d.timer--
	}
}

// APU implements the frame sequencer and four channels of spec.md
// §4.5, summing their outputs through a blip.Buffer band-limited
// resampler down to 44,100 Hz.
type APU struct {
	bus *Bus

	pulse1, pulse2 pulse
	triangle       triangle
	noise          *noise
	dmc            *dmc

	cycle        uint64
	frameStep    byte
	fiveStepMode bool
	irqInhibit   bool
	frameIRQ     bool

	synth   *blip.Buffer
	lastOut int

	samplesMu sync.Mutex
	samples   []int16
}

const apuSampleRate = 44100
const apuMasterClock = 1789773 // CPU rate in Hz (master/3)

func newAPU(bus *Bus) *APU {
	a := &APU{bus: bus, noise: newNoise(), dmc: &dmc{bus: bus}}
	a.pulse2.channel2 = true
	a.synth = blip.NewBuffer(maxSamplesPerFrame)
	a.synth.SetRates(apuMasterClock, apuSampleRate)
	return a
}

// WriteRegister handles $4000-$4013, $4015 and $4017.
func (a *APU) WriteRegister(addr uint16, v byte) {
	switch addr {
	case 0x4000:
		a.pulse1.writeByte0(v)
	case 0x4001:
		a.pulse1.writeByte1(v)
	case 0x4002:
		a.pulse1.writeByte2(v)
	case 0x4003:
		a.pulse1.writeByte3(v)
	case 0x4004:
		a.pulse2.writeByte0(v)
	case 0x4005:
		a.pulse2.writeByte1(v)
	case 0x4006:
		a.pulse2.writeByte2(v)
	case 0x4007:
		a.pulse2.writeByte3(v)
	case 0x4008:
		a.triangle.writeByte0(v)
	case 0x400A:
		a.triangle.writeByte2(v)
	case 0x400B:
		a.triangle.writeByte3(v)
	case 0x400C:
		a.noise.writeByte0(v)
	case 0x400E:
		a.noise.writeByte2(v)
	case 0x400F:
		a.noise.writeByte3(v)
	case 0x4010:
		a.dmc.writeByte0(v)
	case 0x4011:
		a.dmc.writeByte1(v)
	case 0x4012:
		a.dmc.writeByte2(v)
	case 0x4013:
		a.dmc.writeByte3(v)
	case 0x4015:
		a.pulse1.enabled = v&0x01 != 0
		a.pulse2.enabled = v&0x02 != 0
		a.triangle.enabled = v&0x04 != 0
		a.noise.enabled = v&0x08 != 0
		a.dmc.enabled = v&0x10 != 0
		if !a.pulse1.enabled {
			a.pulse1.lengthValue = 0
		}
		if !a.pulse2.enabled {
			a.pulse2.lengthValue = 0
		}
		if !a.triangle.enabled {
			a.triangle.lengthValue = 0
		}
		if !a.noise.enabled {
			a.noise.lengthValue = 0
		}
		if !a.dmc.enabled {
			a.dmc.curLength = 0
		} else if a.dmc.curLength == 0 {
			a.dmc.restart()
		}
	case 0x4017:
		a.fiveStepMode = v&0x80 != 0
		a.irqInhibit = v&0x40 != 0
		if a.irqInhibit {
			a.frameIRQ = false
		}
		if a.fiveStepMode {
			a.clockEnvelopes()
			a.clockLengthAndSweep()
		}
		a.frameStep = 0
	}
}

// ReadStatus services a $4015 read: each channel-active bit reflects
// whether its length counter (or, for DMC, remaining bytes) is
// nonzero.
func (a *APU) ReadStatus() byte {
	var v byte
	if a.pulse1.lengthValue > 0 {
		v |= 0x01
	}
	if a.pulse2.lengthValue > 0 {
		v |= 0x02
	}
	if a.triangle.lengthValue > 0 {
		v |= 0x04
	}
	if a.noise.lengthValue > 0 {
		v |= 0x08
	}
	if a.dmc.curLength > 0 {
		v |= 0x10
	}
	if a.frameIRQ {
		v |= 0x40
	}
	a.frameIRQ = false
	return v
}

func (a *APU) clockEnvelopes() {
	a.pulse1.env.clock()
	a.pulse2.env.clock()
	a.noise.env.clock()
	a.triangle.stepLinear()
}

func (a *APU) clockLengthAndSweep() {
	a.pulse1.stepLength()
	a.pulse2.stepLength()
	a.triangle.stepLength()
	a.noise.stepLength()
	a.pulse1.stepSweep()
	a.pulse2.stepSweep()
}

// stepFrameSequencer clocks the envelope/length/sweep units at the
// quarter- and half-frame boundaries spec.md §4.5's frame-sequencer
// table names. frameStep counts quarter-frames from 1 (pre-increment),
// so spec step N lands on frameStep N+1 — the same four-step and
// five-step case mapping as the teacher's pre-increment frameCounter
// in nes/apu.go's stepFrameCounter.
func (a *APU) stepFrameSequencer() {
	a.frameStep++
	if !a.fiveStepMode {
		a.clockEnvelopes()
		switch a.frameStep {
		case 2, 4:
			a.clockLengthAndSweep()
		}
		if a.frameStep == 4 {
			if !a.irqInhibit {
				a.frameIRQ = true
			}
			a.frameStep = 0
		}
	} else {
		switch a.frameStep {
		case 1, 3:
			a.clockEnvelopes()
		case 2, 5:
			a.clockEnvelopes()
			a.clockLengthAndSweep()
		}
		if a.frameStep == 5 {
			a.frameStep = 0
		}
	}
}

// Tick advances the APU by one CPU cycle (the Bus calls this every
// third master tick, spec.md §4.6).
func (a *APU) Tick() {
	a.triangle.stepTimer()
	if a.cycle%2 == 0 {
		a.pulse1.stepTimer()
		a.pulse2.stepTimer()
		a.noise.stepTimer()
		a.dmc.stepTimer()
	}

	// 240 Hz frame sequencer relative to the CPU clock.
	if a.cycle%uint64(apuMasterClock/240) == 0 {
		a.stepFrameSequencer()
	}

	out := a.mix()
	if out != a.lastOut {
		a.synth.AddDelta(a.cycle, int32(out-a.lastOut))
		a.lastOut = out
	}
	a.cycle++
}

// mix folds the five channel outputs through the two NES mixer LUTs
// (spec.md §4.5) and scales to blip.Buffer's integer delta domain.
func (a *APU) mix() int {
	p1, p2 := a.pulse1.output(), a.pulse2.output()
	t, n, d := a.triangle.output(), a.noise.output(), a.dmc.output
	sample := pulseLUT[p1+p2] + tndLUT[3*int(t)+2*int(n)+int(d)]
	return int(sample * 32767)
}

// maxSamplesPerFrame bounds one video frame's worth of resampled audio
// at 44,100 Hz / ~60 fps, with headroom for slow frames.
const maxSamplesPerFrame = apuSampleRate / 30

// EndFrame flushes the resampler for one video frame's worth of CPU
// cycles and appends any newly available samples to the 512-entry
// ring described in spec.md §3/§6.
func (a *APU) EndFrame(cpuCycles uint32) {
	a.synth.EndFrame(int(cpuCycles))

	var buf [maxSamplesPerFrame]int16
	n := a.synth.ReadSamples(buf[:], maxSamplesPerFrame, blip.Mono)
	if n == 0 {
		return
	}

	a.samplesMu.Lock()
	a.samples = append(a.samples, buf[:n]...)
	const ringSize = 512
	if len(a.samples) > ringSize {
		a.samples = a.samples[len(a.samples)-ringSize:]
	}
	a.samplesMu.Unlock()
}

// Samples returns a copy of the sample ring's current contents.
func (a *APU) Samples() []int16 {
	a.samplesMu.Lock()
	defer a.samplesMu.Unlock()
	return append([]int16(nil), a.samples...)
}

// TakeSamples drains and returns whatever the ring currently holds,
// for an audio driver pulling at its own pace from another goroutine.
func (a *APU) TakeSamples() []int16 {
	a.samplesMu.Lock()
	defer a.samplesMu.Unlock()
	out := a.samples
	a.samples = nil
	return out
}

// IRQPending reports whether the frame sequencer wants to assert IRQ.
// Bus.Tick does not forward it to CPU.IRQ(); a caller that wants APU
// IRQs checks it after each Bus.Tick.
func (a *APU) IRQPending() bool { return a.frameIRQ }
