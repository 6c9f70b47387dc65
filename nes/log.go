package nes

import "github.com/sirupsen/logrus"

// component loggers. One *logrus.Entry per subsystem so trace output
// can be filtered by field ("component=ppu") rather than by message
// text, mirroring the per-logger setup the C++ original gets from
// spdlog::stderr_color_mt("nes::bus") and friends.
var (
	logBus  = logrus.WithField("component", "bus")
	logCPU  = logrus.WithField("component", "cpu")
	logPPU  = logrus.WithField("component", "ppu")
	logAPU  = logrus.WithField("component", "apu")
	logCart = logrus.WithField("component", "cart")
)
