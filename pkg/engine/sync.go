package engine

import (
	"math"
)

// syncMedia runs one render iteration. It either corrects audio/video drift
// or decides whether the current video frame is due, and reports whether a
// frame was presented.
func (e *Engine) syncMedia(now float64) bool {
	elapsed := e.clock.Elapsed(now)
	video := e.cache.CurrentVideo()
	audio := e.cache.CurrentAudio()

	if !e.cache.Empty() && !e.corrected {
		drift := math.Abs(video.PTS - audio.PTS)
		if drift >= e.opts.SyncTolerance && e.correct(video.PTS, audio.PTS, drift) {
			e.corrected = true
			return false
		}
	}

	shouldRender := (video.PTS <= elapsed || e.cache.VideoIndex() == 0) && !e.clock.Paused()
	if !shouldRender {
		return false
	}

	e.clock.MarkFrame(now)
	e.corrected = false
	e.advance(now)
	return true
}

// correct rolls back the stream that is ahead. When video leads, both windows
// are rebuilt just before the audio position; when audio leads, just after
// the video position. The clock is not touched. It reports false when the
// correction was skipped and the frame may be presented as usual.
func (e *Engine) correct(videoPTS, audioPTS, drift float64) bool {
	backward := videoPTS > audioPTS

	var target float64
	if backward {
		target = audioPTS - e.opts.SyncTolerance
	} else {
		target = videoPTS + e.opts.SyncTolerance
	}
	target = math.Max(e.index.Video.First(), math.Min(target, e.index.Video.Last()))

	// A rebuild anchored on the frame already on screen cannot reduce drift,
	// and audio past its final frame has nothing left to align with.
	if e.index.Video.Forward(target) == e.curV {
		e.logger.Debug("Drift %.3fs kept, correction would not move video", drift)
		return false
	}
	if e.curA >= e.index.Audio.Len()-1 {
		e.logger.Debug("Drift %.3fs kept, audio at end of stream", drift)
		return false
	}

	e.logger.Debug("Drift %.3fs, resyncing at %.3f", drift, target)
	if err := e.cache.Fill(e.backend, e.index.Video, target, e.cache.Size()); err != nil {
		e.logger.Warn("Sync correction at %.3f failed: %s", target, err)
		return true
	}
	e.reposition(backward)
	return true
}

// advance moves playback one frame forward. When the frame just presented
// is the last of its window, both windows are rebuilt at the next indexed
// video timestamp; at the end of the stream playback pauses instead.
func (e *Engine) advance(now float64) {
	audioLeft := e.curA < e.index.Audio.Len()-1
	if !e.cache.Exhausted() && !(e.cache.AudioExhausted() && audioLeft) {
		steps := e.cache.Advance()
		e.curV = min(e.curV+1, e.index.Video.Len()-1)
		e.curA = min(e.curA+steps, e.index.Audio.Len()-1)
		return
	}

	next := e.curV + 1
	if next >= e.index.Video.Len() {
		e.clock.Pause(now)
		e.logger.Info("End of stream at %.3fs, paused", e.cache.CurrentVideo().PTS)
		return
	}

	target := e.index.Video.At(next)
	e.logger.Debug("Window exhausted, refilling at %.3f", target)
	if err := e.cache.Fill(e.backend, e.index.Video, target, e.cache.Size()); err != nil {
		e.clock.Pause(now)
		e.logger.Error("Refill at %.3f failed: %s", target, err)
		return
	}
	e.reposition(false)
}

// reposition points the timeline positions at the first frames of freshly
// filled windows. backward selects the at-or-before lookup for audio. A
// window without audio, because audio starts after it, points at the first
// audio frame after the video position.
func (e *Engine) reposition(backward bool) {
	videoPTS := e.cache.CurrentVideo().PTS
	e.curV = e.index.Video.Forward(videoPTS)
	switch {
	case e.cache.AudioLen() == 0:
		e.curA = e.index.Audio.Forward(videoPTS)
	case backward:
		e.curA = e.index.Audio.Backward(e.cache.CurrentAudio().PTS)
	default:
		e.curA = e.index.Audio.Forward(e.cache.CurrentAudio().PTS)
	}
}
