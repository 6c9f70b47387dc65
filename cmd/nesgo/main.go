// Command nesgo drives the nes core against a window, an audio
// stream and controller 1 — the external collaborators
// spec.md §1 places out of the core's scope.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	"github.com/hexfault/nesgo/config"
	"github.com/hexfault/nesgo/nes"
	"github.com/hexfault/nesgo/ui"
)

var cli struct {
	ROM     string `arg:"" help:"Path to an iNES (.nes) ROM image." type:"existingfile"`
	Config  string `help:"Path to a TOML settings file." type:"path"`
	Scale   int    `help:"Integer window scale factor." default:"0"`
	Mute    bool   `help:"Disable audio output."`
	Profile bool   `help:"Record a CPU profile for the run under ./cpu.pprof."`
}

func main() {
	kong.Parse(&cli, kong.Description("A cycle-accurate NES core driver."))

	if cli.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fatal(err)
	}
	if cli.Scale > 0 {
		cfg.Video.Scale = cli.Scale
	}
	if cli.Mute {
		cfg.Audio.Mute = true
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	}

	image, err := os.ReadFile(cli.ROM)
	if err != nil {
		fatal(err)
	}
	cart, err := nes.LoadCartridge(image)
	if err != nil {
		fatal(err)
	}

	bus := nes.NewBus(cart)
	bus.Reset()

	if err := ui.Run(bus, cfg); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "nesgo:", err)
	os.Exit(1)
}
