package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/anemu/goadvance/core"
	"github.com/anemu/goadvance/core/backend"
	"github.com/anemu/goadvance/core/backend/headless"
	"github.com/anemu/goadvance/core/backend/sdl2"
	"github.com/anemu/goadvance/core/backend/terminal"
	"github.com/anemu/goadvance/core/input"
	"github.com/anemu/goadvance/core/input/action"
	"github.com/anemu/goadvance/core/input/event"
	"github.com/anemu/goadvance/core/observability"
	"github.com/anemu/goadvance/core/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "goadvance"
	app.Description = "A Game Boy Advance emulator"
	app.Usage = "goadvance [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "sdl2",
			Usage: "Use the SDL2 backend instead of the terminal backend (requires a -tags sdl2 build)",
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "observability",
			Usage: "Mirror IWRAM/EWRAM state to external tooling over Unix sockets",
		},
		cli.StringFlag{
			Name:  "observability-tx",
			Usage: "Tx socket path for --observability (default: " + observability.DefaultTxSocket + ")",
		},
		cli.StringFlag{
			Name:  "observability-rx",
			Usage: "Rx socket path for --observability (default: " + observability.DefaultRxSocket + ")",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else if !c.Bool("test-pattern") {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	var emu *core.GBA
	if romPath != "" {
		var err error
		emu, err = core.NewWithFile(romPath)
		if err != nil {
			return fmt.Errorf("failed to load ROM: %w", err)
		}
	} else {
		emu = core.New()
	}

	be, limiter, err := buildBackend(c, romPath)
	if err != nil {
		return err
	}

	if c.Bool("observability") {
		cfg := observability.DefaultConfig()
		if v := c.String("observability-tx"); v != "" {
			cfg.TxPath = v
		}
		if v := c.String("observability-rx"); v != "" {
			cfg.RxPath = v
		}
		if err := emu.EnableObservability(cfg); err != nil {
			return fmt.Errorf("failed to start observability sidecar: %w", err)
		}
		defer emu.Close()
	}

	config := backend.BackendConfig{
		Title:         "goadvance",
		TestPattern:   c.Bool("test-pattern"),
		DebugProvider: emu,
		AudioProvider: emu.GetAudio(),
	}
	if err := be.Init(config); err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer be.Cleanup()

	emu.SetFrameLimiter(limiter)
	handler := input.NewHandler()

	for {
		if err := emu.RunUntilFrame(); err != nil {
			return err
		}

		events, err := be.Update(emu.GetCurrentFrame())
		if err != nil {
			return err
		}

		quit := false
		for _, evt := range events {
			if !handler.ProcessEvent(evt) {
				continue
			}
			if evt.Action == action.EmulatorQuit {
				quit = true
				continue
			}
			if evt.Type == event.Press {
				switch b := be.(type) {
				case interface{ HandleAction(action.Action) }:
					b.HandleAction(evt.Action)
				case interface{ HandleBackendAction(action.Action) }:
					b.HandleBackendAction(evt.Action)
				}
			}
			emu.HandleAction(evt.Action, evt.Type != event.Release)
		}
		if quit {
			return nil
		}
	}
}

// buildBackend selects and constructs the presentation backend and an
// appropriately-paced frame limiter for the requested mode.
func buildBackend(c *cli.Context, romPath string) (backend.Backend, timing.Limiter, error) {
	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 && !c.Bool("test-pattern") {
			return nil, nil, errors.New("headless mode requires --frames option with a positive value")
		}

		snapshotConfig, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
		if err != nil {
			return nil, nil, err
		}

		return headless.New(frames, snapshotConfig), timing.NewNoOpLimiter(), nil
	}

	if c.Bool("sdl2") {
		return sdl2.New(), timing.NewAdaptiveLimiter(), nil
	}

	return terminal.New(), timing.NewAdaptiveLimiter(), nil
}
