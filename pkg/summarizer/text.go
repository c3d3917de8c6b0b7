package summarizer

import (
	"strings"

	"github.com/ideamans/go-l10n"
)

// NewTextFormatter returns a Formatter producing the localized plain text
// shown on the console.
func NewTextFormatter() Formatter {
	return FormatFunc(formatText)
}

func formatText(s *Summary) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		b.WriteString(l10n.F(format, args...))
		b.WriteByte('\n')
	}

	v, a := s.Video, s.Audio
	line("File: %s", s.Media.Path)
	line("Video: %s %dx%d, timescale %d, decoder %s", v.Codec, v.Width, v.Height, v.Timescale, v.Decoder)
	line("  %d frames, %.3fs to %.3fs, %.2f fps", v.Timeline.Frames, v.Timeline.First, v.Timeline.Last, v.Timeline.Rate)
	line("Audio: %s %d Hz, %d channels, %d-bit, decoder %s", a.Codec, a.SampleRate, a.Channels, a.SampleSize, a.Decoder)
	line("  %d frames, %.3fs to %.3fs, %.2f fps", a.Timeline.Frames, a.Timeline.First, a.Timeline.Last, a.Timeline.Rate)
	line("Duration: %.3fs", s.Duration())

	if p := s.Playback; p != nil {
		line("Played %.3fs to %.3fs, %d frames presented", p.Start, p.Position, p.Presented)
	}
	return b.String()
}
