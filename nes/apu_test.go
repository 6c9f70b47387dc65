package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPulseMutedBelowMinimumTimerPeriod(t *testing.T) {
	p := &pulse{}
	p.enabled = true
	p.lengthValue = 10
	p.timerPeriod = 4 // below the 8-cycle floor
	p.env.constant = true
	p.env.period = 15

	assert.Equal(t, byte(0), p.output())
}

func TestPulseOutputsEnvelopeWhenAudible(t *testing.T) {
	p := &pulse{}
	p.enabled = true
	p.lengthValue = 10
	p.timerPeriod = 100
	p.duty = 2
	p.dutyPos = 1 // dutyTable[2][1] == 1
	p.env.constant = true
	p.env.period = 9

	assert.Equal(t, byte(9), p.output())
}

func TestEnvelopeDecaysThenLoops(t *testing.T) {
	e := &envelope{loop: true, period: 0}
	e.start = true
	e.clock() // start -> decay=15
	assert.Equal(t, byte(15), e.decay)

	for i := 0; i < 15; i++ {
		e.clock()
	}
	assert.Equal(t, byte(0), e.decay)

	e.clock() // loop back to 15
	assert.Equal(t, byte(15), e.decay)
}

func TestChannelEnableClearsLengthCounter(t *testing.T) {
	bus := &Bus{}
	a := newAPU(bus)
	a.pulse1.lengthValue = 5
	a.WriteRegister(0x4015, 0x00)
	assert.Equal(t, byte(0), a.pulse1.lengthValue)
}
