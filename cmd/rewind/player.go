package main

import (
	"context"
	"fmt"
	"time"

	"github.com/user/rewind/pkg/engine"
	"github.com/user/rewind/pkg/ports"
)

// session describes one headless playback run.
type session struct {
	Start    float64       // Seek target before playing; negative keeps the loaded position
	For      time.Duration // Stop after this much wall time; zero plays to the end
	TickRate int           // Render iterations per second
	Report   time.Duration // Progress log interval; zero disables reports
}

// result summarizes a finished session.
type result struct {
	Presented int     // Frames that became current
	Position  float64 // Timestamp of the current video frame on exit
	Ended     bool    // Playback reached the last frame
}

// runSession drives eng the way a render loop would, calling Tick at the
// configured rate. It returns when the media ends, the time budget is spent
// or ctx is cancelled. The engine is left paused.
func runSession(ctx context.Context, eng *engine.Engine, now func() float64, s session, log ports.Logger) (result, error) {
	if s.Start >= 0 {
		if err := eng.Seek(s.Start); err != nil {
			return result{}, err
		}
	}

	rate := s.TickRate
	if rate < 1 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.For > 0 {
		timer := time.NewTimer(s.For)
		defer timer.Stop()
		deadline = timer.C
	}

	res := result{Position: eng.Position()}
	eng.Play()
	defer eng.Pause()

	lastReport := now()
	for {
		select {
		case <-ctx.Done():
			return res, nil
		case <-deadline:
			return res, nil
		case <-ticker.C:
		}

		t := now()
		if eng.Tick(t) {
			res.Presented++
		}
		res.Position = eng.Position()

		if eng.IsPaused() {
			res.Ended = res.Position >= eng.Index().Video.Last()
			if !res.Ended {
				return res, fmt.Errorf("playback stopped at %.3fs", res.Position)
			}
			return res, nil
		}

		if s.Report > 0 && t-lastReport >= s.Report.Seconds() {
			video, audio := eng.CurrentVideoFrame(), eng.CurrentAudioFrame()
			log.Info("Playing %.2fs / %.2fs (%.1f%%), drift %.3fs",
				res.Position, eng.TotalDuration(), eng.Progress(), video.PTS-audio.PTS)
			lastReport = t
		}
	}
}
