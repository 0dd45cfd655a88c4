// Command boodler-play is a minimal demo host embedding the boodler engine:
// a thin wrapper over the public API for hand-testing it.
// With no sample file argument it plays a
// synthesized demo tone through the normal sample/note pipeline; given a
// raw 16-bit PCM file it loads and plays that instead.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"boodler"
	"boodler/internal/config"
	"boodler/internal/device"
)

var hostLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "boodler-play",
})

func main() {
	if err := run(); err != nil {
		hostLogger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	var (
		deviceName   = pflag.String("device", cfg.OutputDevice, "output device name (empty = system default)")
		rateHint     = pflag.Int("rate", cfg.SampleRateHint, "preferred device sample rate")
		framesPerBuf = pflag.Int("buffer", cfg.FramesPerBuf, "frames per mix buffer")
		bufferCount  = pflag.Int("buffercount", cfg.BufferCount, "ring buffer depth")
		runSeconds   = pflag.IntP("time", "t", 0, "stop after N seconds (0 = run until the note finishes)")
		rawOut       = pflag.String("raw", "", "write raw 16-bit PCM to this path instead of opening a device")
		endianness   = pflag.String("end", "", "byte order of raw 16-bit output: big or little")
		listDevices  = pflag.Bool("listdevices", false, "list all audio devices and exit")
		panNormalize = pflag.Bool("pan-normalize", cfg.PanNormalize, "use the older renormalizing stereo pan law")
		volume       = pflag.Float64("volume", cfg.MasterVolume, "note volume, 0.0-1.0+")
		toneFreq     = pflag.Float64("tone-freq", 440, "frequency of the built-in demo tone, in Hz")
		toneSeconds  = pflag.Float64("tone-duration", 2, "duration of the built-in demo tone, in seconds")
		verbose      = pflag.BoolP("verbose", "v", cfg.Verbose, "enable debug logging")
		saveConfig   = pflag.Bool("save-config", false, "persist the resolved flags as the new default config")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [raw-sample-file]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *verbose {
		hostLogger.SetLevel(log.DebugLevel)
		boodler.SetLogger(hostLogger)
	}

	if *listDevices {
		return printDevices()
	}

	opts := device.ParseOptions([][2]string{
		{device.OptBufferSize, fmt.Sprint(*framesPerBuf)},
		{device.OptBufferCount, fmt.Sprint(*bufferCount)},
		{device.OptTime, fmt.Sprint(*runSeconds)},
		{device.OptEnd, *endianness},
	})

	if *saveConfig {
		newCfg := config.Config{
			OutputDevice:   *deviceName,
			SampleRateHint: *rateHint,
			FramesPerBuf:   *framesPerBuf,
			BufferCount:    *bufferCount,
			Verbose:        *verbose,
			PanNormalize:   *panNormalize,
			MasterVolume:   *volume,
		}
		if err := config.Save(newCfg); err != nil {
			hostLogger.Error("failed to save config", "err", err)
		}
	}

	adapter, err := openAdapter(*rawOut, *deviceName, *rateHint, opts)
	if err != nil {
		return err
	}

	engine, err := boodler.Init(adapter, *panNormalize)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer engine.Shutdown()

	s := engine.NewSample()
	if args := pflag.Args(); len(args) > 0 {
		if err := loadSampleFile(engine, s, args[0], engine.FramesPerSecond()); err != nil {
			return err
		}
	} else {
		raw := boodler.GenerateTone(*toneFreq, *toneSeconds, engine.FramesPerSecond())
		if err := engine.LoadSample(s, engine.FramesPerSecond(), int64(len(raw)/2), raw, -1, -1, 1, 16, true, false); err != nil {
			return fmt.Errorf("load demo tone: %w", err)
		}
	}

	duration, err := engine.CreateNote(boodler.CreateOpts{
		Sample: s,
		Pitch:  1,
		Volume: *volume,
		Pan:    boodler.IdentityTransform,
	})
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	hostLogger.Info("playing", "duration_frames", duration, "rate", engine.FramesPerSecond())

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)

	runLimit := int64(0)
	if *runSeconds > 0 {
		runLimit = int64(*runSeconds) * int64(engine.FramesPerSecond())
	}
	lastLoggedSecond := int64(-1)

	return engine.RunLoop(func(e *boodler.Engine) (bool, error) {
		select {
		case <-stopCh:
			return true, nil
		default:
		}
		if runLimit > 0 && e.CurrentTime() >= runLimit {
			return true, nil
		}
		if duration > 0 && e.CurrentTime() >= duration {
			return true, nil
		}
		if *verbose {
			if sec := e.CurrentTime() / int64(e.FramesPerSecond()); sec != lastLoggedSecond {
				lastLoggedSecond = sec
				hostLogger.Debug("level", "peak_db", e.PeakLevelDB(), "rms_db", e.RMSLevelDB())
			}
		}
		return false, nil
	})
}

func printDevices() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}
	for _, d := range devices {
		fmt.Printf("%s (out=%d in=%d)\n", d.Name, d.MaxOutputChannels, d.MaxInputChannels)
	}
	return nil
}

func openAdapter(rawPath, deviceName string, rateHint int, opts device.OptionsBag) (boodler.Adapter, error) {
	framesPerBuf := opts.BufferSize(1024)
	bufferCount := opts.BufferCount(3)

	if rawPath != "" {
		f, err := os.Create(rawPath)
		if err != nil {
			return nil, fmt.Errorf("open raw output: %w", err)
		}
		rate := rateHint
		if rate <= 0 {
			rate = 44100
		}
		return device.NewRawFileAdapter(f, rate, framesPerBuf, false, opts.BigEndian(false)), nil
	}
	return device.OpenPortAudioAdapter(deviceName, rateHint, framesPerBuf, bufferCount)
}

func loadSampleFile(e *boodler.Engine, s *boodler.Sample, path string, deviceRate int) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sample file %s: %w", path, err)
	}
	numFrames := int64(len(raw) / 2)
	if err := e.LoadSample(s, deviceRate, numFrames, raw, -1, -1, 1, 16, true, false); err != nil {
		return fmt.Errorf("load sample %s: %w", path, err)
	}
	return nil
}
