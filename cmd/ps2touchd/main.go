// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

// ps2touchd drives a PS/2 touchpad bound to serio_raw and republishes it as
// a virtual multi-touch input device.
//
// It probes the FocalTech protocol first, then Elantech, switches the
// touchpad to its native reporting mode and feeds the decoded frames to a
// uinput device. Configuration is TOML; edits to the elantech register
// overrides are applied live.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"periph.io/x/ps2touch/elantech"
	"periph.io/x/ps2touch/focaltech"
	"periph.io/x/ps2touch/ps2"
	"periph.io/x/ps2touch/ps2/serio"
	"periph.io/x/ps2touch/touch"
	"periph.io/x/ps2touch/uinput"
)

const (
	reconnectTries = 5
	reconnectDelay = 500 * time.Millisecond
)

// driver is what the daemon needs from either protocol family.
type driver interface {
	ProcessByte(b byte) error
	Reconnect() error
	Halt() error
	Geometry() (xMin, xMax, yMin, yMax int32)
	SlotCount() int
	String() string
}

// proxySink stands in for the uinput device while it does not exist yet; the
// drivers are constructed first because the virtual device's geometry comes
// from their handshake.
type proxySink struct {
	sink touch.Sink
}

func (p *proxySink) Slot(slot int, active bool, x, y int32) error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Slot(slot, active, x, y)
}

func (p *proxySink) Key(k touch.Key, pressed bool) error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Key(k, pressed)
}

func (p *proxySink) Axis(a touch.Axis, value int32) error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Axis(a, value)
}

func (p *proxySink) Sync() error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Sync()
}

func newLogger(cfg LogConfig) zerolog.Logger {
	out := io.Writer(os.Stderr)
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ps2touchd: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	if err := run(logger, cfg, *configPath); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
}

func run(logger zerolog.Logger, cfg *Config, configPath string) error {
	port, err := serio.Open(cfg.Device.Path)
	if err != nil {
		return err
	}
	defer port.Close()
	logger.Info().Str("port", port.String()).Msg("opened port")

	sink := &proxySink{}
	logf := func(format string, args ...any) {
		logger.Debug().Msgf(format, args...)
	}
	policy, _ := cfg.LargeContactPolicy()

	// Probe order matters: the FocalTech fingerprint read is harmless to
	// Elantech hardware, while the Elantech knock confuses FocalTech
	// pads.
	var drv driver
	var eld *elantech.Dev
	if cfg.Device.Protocol == "auto" || cfg.Device.Protocol == "focaltech" {
		d, err := focaltech.New(port, &focaltech.Opts{Sink: sink, LargeContact: policy, Logf: logf})
		switch {
		case err == nil:
			drv = d
		case cfg.Device.Protocol == "focaltech":
			return err
		default:
			logger.Debug().Err(err).Msg("not a focaltech touchpad")
		}
	}
	if drv == nil && (cfg.Device.Protocol == "auto" || cfg.Device.Protocol == "elantech") {
		d, err := elantech.New(port, &elantech.Opts{Force: cfg.Elantech.Force, Sink: sink, Logf: logf})
		if err != nil {
			return err
		}
		eld = d
		drv = d
	}
	if drv == nil {
		return errors.New("no supported touchpad found")
	}
	logger.Info().Str("device", drv.String()).Msg("touchpad initialized")

	xMin, xMax, yMin, yMax := drv.Geometry()
	uopts := &uinput.Opts{
		Name: cfg.Uinput.Name,
		XMin: xMin, XMax: xMax,
		YMin: yMin, YMax: yMax,
		Slots: drv.SlotCount(),
	}
	if eld != nil {
		uopts.Pressure = eld.ReportsPressure()
		uopts.Rocker = eld.HasRocker()
	} else {
		uopts.Buttonpad = true
	}
	vdev, err := uinput.New(cfg.Uinput.Path, uopts)
	if err != nil {
		return err
	}
	defer vdev.Close()
	sink.sink = vdev
	logger.Info().Str("uinput", vdev.String()).Msg("created virtual device")

	if eld != nil {
		applyRegisters(logger, cfg, eld)
		if err := eld.Enable(); err != nil {
			return err
		}
	}

	// Reloads are delivered to the read loop, which applies them between
	// reads; the port must not carry commands while it is being read.
	cfgc := make(chan *Config, 1)
	if configPath != "" && eld != nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			logger.Warn().Err(err).Msg("config watch unavailable")
		} else {
			defer w.Close()
			if err := w.Add(configPath); err != nil {
				logger.Warn().Err(err).Msg("config watch unavailable")
			} else {
				go watchConfig(logger, w, configPath, cfgc)
			}
		}
	}

	var stopping atomic.Bool
	reconnect := make(chan struct{}, 1)
	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for s := range sigc {
			if s == syscall.SIGHUP {
				logger.Info().Msg("reconnect requested")
				select {
				case reconnect <- struct{}{}:
				default:
				}
				continue
			}
			logger.Info().Str("signal", s.String()).Msg("shutting down")
			stopping.Store(true)
			if err := drv.Halt(); err != nil {
				logger.Warn().Err(err).Msg("halt failed")
			}
			// Unblocks the read loop.
			port.Close()
			return
		}
	}()

	buf := make([]byte, 64)
	for {
		select {
		case <-reconnect:
			if err := doReconnect(logger, cfg, drv, eld); err != nil {
				return err
			}
		case newCfg := <-cfgc:
			cfg = newCfg
			applyRegisters(logger, cfg, eld)
		default:
		}
		n, err := port.Read(buf)
		if err != nil {
			if stopping.Load() {
				return nil
			}
			// The port dropping out usually means the device lost
			// power, e.g. across suspend.
			logger.Warn().Err(err).Msg("read failed, reconnecting")
			if err := doReconnect(logger, cfg, drv, eld); err != nil {
				return err
			}
			continue
		}
		for _, b := range buf[:n] {
			if err := drv.ProcessByte(b); err != nil {
				if errors.Is(err, ps2.ErrCorruptPacket) {
					logger.Warn().Err(err).Msg("dropped packet")
					continue
				}
				return err
			}
		}
	}
}

// doReconnect re-runs the device handshake with bounded retries.
func doReconnect(logger zerolog.Logger, cfg *Config, drv driver, eld *elantech.Dev) error {
	var err error
	for try := 0; try < reconnectTries; try++ {
		if err = drv.Reconnect(); err == nil {
			if eld != nil {
				applyRegisters(logger, cfg, eld)
			}
			logger.Info().Str("device", drv.String()).Msg("reconnected")
			return nil
		}
		logger.Warn().Err(err).Int("try", try+1).Msg("reconnect failed")
		time.Sleep(reconnectDelay)
	}
	return fmt.Errorf("device did not come back: %w", err)
}

// applyRegisters writes the configured register overrides. Reporting is
// paused around the writes so command replies do not end up in the packet
// stream.
func applyRegisters(logger zerolog.Logger, cfg *Config, d *elantech.Dev) {
	regs, err := cfg.RegisterOverrides()
	if err != nil {
		logger.Warn().Err(err).Msg("bad register overrides")
		return
	}
	if len(regs) == 0 {
		return
	}
	if err := d.Halt(); err != nil {
		logger.Warn().Err(err).Msg("could not pause reporting")
		return
	}
	for reg, val := range regs {
		if err := d.SetRegister(reg, val); err != nil {
			logger.Warn().Err(err).
				Str("register", fmt.Sprintf("0x%02x", reg)).
				Msg("register override failed")
			continue
		}
		logger.Info().
			Str("register", fmt.Sprintf("0x%02x", reg)).
			Str("value", fmt.Sprintf("0x%02x", val)).
			Msg("register override applied")
	}
	if err := d.Enable(); err != nil {
		logger.Warn().Err(err).Msg("could not resume reporting")
	}
}

// watchConfig delivers reloaded configs when the config file changes. The
// receiver owns the port; issuing commands from this goroutine would race the
// read loop.
func watchConfig(logger zerolog.Logger, w *fsnotify.Watcher, path string, cfgc chan *Config) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Info().Str("config", path).Msg("config changed")
			cfg, err := LoadConfig(path)
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring bad config")
				continue
			}
			// Latest edit wins when several pile up unread.
			select {
			case <-cfgc:
			default:
			}
			cfgc <- cfg
			// Editors often replace the file; re-arm the watch.
			_ = w.Add(path)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watch error")
		}
	}
}
