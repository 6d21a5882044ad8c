package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/mdstream"
	"pkt.systems/pslog"
)

type renderFlags struct {
	configPath string
	output     string
	instant    bool
	strict     bool
	noColor    bool
}

func newRenderCmd() *cobra.Command {
	var rf renderFlags
	def := defaultFileConfig()
	cmd := &cobra.Command{
		Use:   "render [inputs...]",
		Short: "Stream Markdown inputs to the terminal",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rf.configPath
			if path == "" {
				if p, err := defaultConfigPath(); err == nil {
					path = p
				}
			}
			cfg, err := loadConfig(path, cmd.Flags())
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cfg, rf, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&rf.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/mdstream/config.yaml)")
	flags.StringVarP(&rf.output, "output", "o", "", "Output file instead of stdout")
	flags.BoolVar(&rf.instant, "instant", false, "Reveal every block as soon as it is complete")
	flags.BoolVar(&rf.strict, "strict", false, "Fail on invalid UTF-8 or binary input instead of dropping bytes")
	flags.BoolVar(&rf.noColor, "no-color", false, "Disable styling of status notices")
	flags.StringP("unit", "u", def.Unit, "Reveal unit: character|word|line")
	flags.IntP("units-per-chunk", "n", def.UnitsPerChunk, "Units revealed per tick")
	flags.String("interval", def.Interval, "Tick interval")
	flags.IntP("width", "w", def.Width, "Output width override (0 uses terminal width if available)")
	flags.BoolP("pretty", "p", def.Pretty, "Render completed blocks with glamour")
	flags.String("style", def.Style, "glamour style for --pretty (auto, dark, light, notty, ...)")
	flags.Bool("simulate", def.Simulate.Enabled, "Simulate token timing on the input")
	flags.Int("simulate-chunk", def.Simulate.Chunk, "Runes per simulated token")
	flags.String("simulate-delay", def.Simulate.Delay, "Delay per simulated token")
	return cmd
}

func runRender(ctx context.Context, cfg fileConfig, rf renderFlags, args []string) error {
	logger := pslog.Ctx(ctx)
	sessCfg, err := cfg.sessionConfig()
	if err != nil {
		return err
	}
	chunk := 4096
	var delay time.Duration
	if cfg.Simulate.Enabled {
		if delay, err = cfg.simulateDelay(); err != nil {
			return err
		}
		chunk = cfg.Simulate.Chunk
	}

	reader, closer, err := openInputs(ctx, args)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	writer, closeOut, err := resolveOutput(rf.output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if closeOut != nil {
		defer func() { _ = closeOut.Close() }()
	}

	host, err := newTerminalHost(hostRequest{
		Writer: writer,
		Width:  resolveWidth(cfg.Width, writer),
		Pretty: cfg.Pretty,
		Style:  cfg.Style,
		Color:  !rf.noColor && isTerminal(writer),
	})
	if err != nil {
		return err
	}
	sess, err := mdstream.NewSession(mdstream.SessionRequest{
		Config:  sessCfg,
		Sink:    host,
		Options: []mdstream.SessionOption{mdstream.WithLogger(logger)},
	})
	if err != nil {
		return err
	}
	host.setLookup(sess.Module)
	logger.Debug("render started", "session", sess.ID(), "unit", sessCfg.Unit.String(), "interval", sessCfg.Interval.String(), "pretty", cfg.Pretty)

	if err := stream(ctx, sess, reader, chunk, delay, rf); err != nil {
		return err
	}
	if err := host.Err(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Debug("render finished", "modules", len(sess.Modules()), "oscillations", sess.Oscillations())
	return nil
}

// stream feeds reader into sess through a Runner and waits until the reveal
// drains or ctx is cancelled.
func stream(ctx context.Context, sess *mdstream.Session, reader io.Reader, chunk int, delay time.Duration, rf renderFlags) error {
	runner := mdstream.NewRunner(sess)
	feedErr := make(chan error, 1)
	go func() {
		err := mdstream.Feed(ctx, mdstream.FeedRequest{
			Reader:    reader,
			Target:    runner,
			ChunkSize: chunk,
			Delay:     delay,
			Strict:    rf.strict,
			Finish:    true,
		})
		if err == nil && rf.instant {
			err = runner.FinishImmediately()
		}
		if err != nil && !errors.Is(err, mdstream.ErrRunnerStopped) {
			_ = runner.Abort()
		}
		feedErr <- err
	}()
	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	err := <-feedErr
	if err != nil && !errors.Is(err, mdstream.ErrRunnerStopped) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
