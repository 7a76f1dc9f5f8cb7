package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/norasector/sonar/pkg/sonar"
	"github.com/norasector/sonar/pkg/sonar/config"
	"github.com/norasector/sonar/pkg/sonar/device"
	"github.com/norasector/sonar/pkg/sonar/device/file"
	"github.com/norasector/sonar/pkg/sonar/device/sim"
	"github.com/norasector/sonar/pkg/sonar/device/wav"
	"github.com/norasector/sonar/pkg/sonar/output"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "sonar.yaml", "YAML config file")

	flag.Parse()
	if configFile == nil {
		flag.Usage()
		os.Exit(1)
	}

	opts, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading config file")
	}
	if opts.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	engineOpts, params, err := opts.EngineOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var dev device.Device

	switch opts.Device {
	case "file":
		log.Info().Str("device", "file").Str("path", opts.PlaybackLocation).Msg("initializing device...")
		dev, err = file.NewFileDevice(opts.PlaybackLocation, opts.ChunkSize, opts.SampleRate, opts.ChunkInterval)
		if err != nil {
			log.Fatal().Str("device", "file").Err(err).Msg("failed to init file reader")
		}
	case "wav":
		log.Info().Str("device", "wav").Str("path", opts.PlaybackLocation).Msg("initializing device...")
		wavDev, err := wav.NewWavDevice(opts.PlaybackLocation, opts.WavChannel, opts.ChunkSize, opts.ChunkInterval)
		if err != nil {
			log.Fatal().Str("device", "wav").Err(err).Msg("failed to open wav file")
		}
		if wavDev.SampleRate() != opts.SampleRate {
			log.Fatal().
				Int("file_sample_rate", wavDev.SampleRate()).
				Int("sample_rate", opts.SampleRate).
				Msg("wav sample rate does not match configuration")
		}
		dev = wavDev
	case "sim":
		log.Info().Str("device", "sim").Int("targets", len(opts.Sim.Targets)).Msg("initializing device...")
		dev, err = sim.NewSimDevice(opts.SimOptions(engineOpts.Impulse), opts.ChunkSize, opts.ChunkInterval,
			opts.Sim.Pulses*int64(opts.Pulse.Length))
		if err != nil {
			log.Fatal().Str("device", "sim").Err(err).Msg("failed to create simulator")
		}
	default:
		log.Fatal().Str("device", opts.Device).Msg("unknown device")
	}

	engine, err := sonar.NewEngine(engineOpts, sonar.WithEngineLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create engine")
	}

	outputs := []sonar.MapOutput{output.NewLogOutput(log.Logger, &params)}
	if opts.TextOutput.Enabled {
		outputs = append(outputs, output.NewTextOutput(os.Stdout, opts.TextOutput.Columns))
	}

	receiverOpts := []sonar.ReceiverOption{sonar.WithLogger(log.Logger)}
	if opts.InfluxDB.Host != "" {
		client := influxdb2.NewClient(opts.InfluxDB.Host, "")
		defer client.Close()
		writeAPI := client.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
		defer writeAPI.Flush()
		receiverOpts = append(receiverOpts, sonar.WithInfluxDB(writeAPI))
	}

	receiver, err := sonar.NewReceiver(dev, engine, sonar.ReceiverOptions{
		PublishEvery: opts.PublishEvery,
		Params:       &params,
		Outputs:      outputs,
	}, receiverOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create receiver")
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {

		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		return receiver.Stop()
	})

	eg.Go(func() error {
		if err := receiver.Start(ctx); err != nil {
			return err
		}
		// End of stream; release the signal goroutine.
		return context.Canceled
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("exited program")
	}
}
