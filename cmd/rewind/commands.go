package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/rewind/pkg/config"
	"github.com/user/rewind/pkg/engine"
	"github.com/user/rewind/pkg/ports"
	"github.com/user/rewind/pkg/summarizer"
	"github.com/user/rewind/pkg/timeline"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Play a file headlessly, pacing frames against the wall clock"),
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "start",
				Usage: l10n.T("Seek to this position in seconds before playing"),
			},
			&cli.DurationFlag{
				Name:  "for",
				Usage: l10n.T("Stop after this much wall time (default: play to the end)"),
			},
			&cli.BoolFlag{
				Name:  "no-resume",
				Usage: l10n.T("Ignore the saved position"),
			},
			&cli.DurationFlag{
				Name:  "report",
				Value: time.Second,
				Usage: l10n.T("Progress log interval (0 disables)"),
			},
			&cli.StringFlag{
				Name:  "summary",
				Usage: l10n.T("Write a Markdown report of the session to this path"),
			},
		},
		Action: runPlay,
	}
}

func runPlay(c *cli.Context) error {
	path, err := requireArg(c)
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(e.log)
	defer cancel()

	store := e.openStore()
	if store != nil {
		defer store.Close()
	}

	now := wallClock()
	eng := e.newEngine(store, now)
	defer eng.Close()

	if err := eng.Load(path); err != nil {
		return err
	}

	s := session{
		Start:    -1,
		For:      c.Duration("for"),
		TickRate: e.cfg.TickRate,
		Report:   c.Duration("report"),
	}
	switch {
	case c.IsSet("start"):
		s.Start = c.Float64("start")
	case store != nil && !c.Bool("no-resume"):
		if pos, ok, err := store.Position(path); err != nil {
			e.log.Warn("Could not read saved position: %s", err)
		} else if ok && pos > 0 {
			e.log.Info("Resuming %s at %.2fs", path, pos)
			s.Start = pos
		}
	}

	started := time.Now()
	res, err := runSession(ctx, eng, now, s, e.log)
	if store != nil {
		pos := res.Position
		if res.Ended {
			pos = 0
		}
		if serr := store.SavePosition(path, pos); serr != nil {
			e.log.Warn("Could not save position: %s", serr)
		}
	}
	if err != nil {
		return err
	}

	e.log.Info("Presented %d frames, stopped at %.2fs", res.Presented, res.Position)

	summary := summarize(e, eng).
		WithPlayback(summarizer.PlaybackInfo{
			Start:     max(s.Start, eng.Index().Video.First()),
			Position:  res.Position,
			Presented: res.Presented,
			Ended:     res.Ended,
			WallTime:  time.Since(started),
		}).
		Build()
	return writeReport(e, c.String("summary"), summary)
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show stream information and timeline of a file"),
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "markdown",
				Usage: l10n.T("Also write a Markdown report to this path"),
			},
		},
		Action: func(c *cli.Context) error {
			path, err := requireArg(c)
			if err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}

			store := e.openStore()
			if store != nil {
				defer store.Close()
			}
			eng := e.newEngine(store, wallClock())
			defer eng.Close()

			if err := eng.Load(path); err != nil {
				return err
			}
			summary := summarize(e, eng).Build()
			fmt.Print(summarizer.NewTextFormatter().Format(summary))
			return writeReport(e, c.String("markdown"), summary)
		},
	}
}

// summarize describes the media loaded in eng. A failed stat only leaves
// the size out.
func summarize(e *env, eng *engine.Engine) *summarizer.Builder {
	var size int64
	if info, err := e.fs.Stat(eng.Path()); err == nil {
		size = info.Size
	}
	return summarizer.NewBuilder().
		WithMedia(eng.Path(), size).
		WithStreams(eng.Info(), eng.Index())
}

// writeReport writes a Markdown report when path is set.
func writeReport(e *env, path string, summary *summarizer.Summary) error {
	if path == "" {
		return nil
	}
	w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), e.fs)
	if err := w.Write(path, summary); err != nil {
		return err
	}
	e.log.Info("Report written to %s", path)
	return nil
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     l10n.T("Build the timeline cache for one or more files"),
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: l10n.T("Rebuild entries that are already cached"),
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   runtime.NumCPU(),
				Usage:   l10n.T("Number of files indexed in parallel"),
			},
		},
		Action: runIndex,
	}
}

func runIndex(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New(l10n.T("no files given"))
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	if !e.cfg.IndexCache.Enabled {
		return errors.New(l10n.T("index cache is disabled in the configuration"))
	}

	store := e.openStore()
	if store == nil {
		return errors.New(l10n.T("index cache could not be opened"))
	}
	defer store.Close()

	ctx, cancel := signalContext(e.log)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Int("jobs")))

	force := c.Bool("force")
	var failed atomic.Int32
	for _, path := range c.Args().Slice() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := indexFile(e, store, path, force); err != nil {
				e.log.Error("Failed to index %s: %s", path, err)
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := failed.Load(); n > 0 {
		return fmt.Errorf(l10n.T("%d of %d files failed"), n, c.NArg())
	}
	return nil
}

// indexFile scans path with its own backend and stores the timeline.
func indexFile(e *env, store ports.IndexStore, path string, force bool) error {
	if !force {
		if _, _, ok, err := store.LoadIndex(path); err == nil && ok {
			e.log.Info("Already indexed: %s", path)
			return nil
		}
	}

	backend := e.newBackend()
	defer backend.Close()

	if _, err := backend.Open(path); err != nil {
		return err
	}

	start := time.Now()
	index, err := timeline.Build(backend)
	if err != nil {
		return err
	}
	if err := store.SaveIndex(path, index.Video, index.Audio); err != nil {
		return err
	}

	e.log.Info("Indexed %s: %d video, %d audio frames in %d ms",
		path, index.Video.Len(), index.Audio.Len(), time.Since(start).Milliseconds())
	return nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: l10n.T("Print the effective configuration as YAML"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "write",
				Usage: l10n.F("Write the configuration to this path instead of printing it (read by default from %s)", config.DefaultPath()),
			},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			data, err := e.cfg.Marshal()
			if err != nil {
				return err
			}

			out := c.String("write")
			if out == "" {
				fmt.Print(string(data))
				return nil
			}
			if err := e.fs.MkdirAll(filepath.Dir(out)); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := e.fs.WriteFile(out, data); err != nil {
				return err
			}
			e.log.Info("Configuration written to %s", out)
			return nil
		},
	}
}
