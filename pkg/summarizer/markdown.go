package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// NewMarkdownFormatter returns a Formatter producing a Markdown report.
func NewMarkdownFormatter() Formatter {
	return FormatFunc(formatMarkdown)
}

func formatMarkdown(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Media Summary\n\n")
	fmt.Fprintf(&b, "- **File**: `%s`\n", s.Media.Path)
	if s.Media.Size > 0 {
		fmt.Fprintf(&b, "- **Size**: %s\n", formatBytes(s.Media.Size))
	}
	fmt.Fprintf(&b, "- **Duration**: %.3f s\n", s.Duration())
	fmt.Fprintf(&b, "- **Generated**: %s\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("\n## Streams\n\n")
	b.WriteString("| Stream | Codec | Decoder | Format | Frames | First | Last | Rate | Max gap |\n")
	b.WriteString("|--------|-------|---------|--------|-------:|------:|-----:|-----:|--------:|\n")

	v := s.Video
	writeStreamRow(&b, "Video", v.Codec, v.Decoder,
		fmt.Sprintf("%dx%d", v.Width, v.Height), v.Timeline)
	a := s.Audio
	writeStreamRow(&b, "Audio", a.Codec, a.Decoder,
		fmt.Sprintf("%d Hz, %d ch, %d-bit", a.SampleRate, a.Channels, a.SampleSize), a.Timeline)

	if p := s.Playback; p != nil {
		b.WriteString("\n## Playback\n\n")
		fmt.Fprintf(&b, "- **Started at**: %.3f s\n", p.Start)
		fmt.Fprintf(&b, "- **Stopped at**: %.3f s\n", p.Position)
		fmt.Fprintf(&b, "- **Frames presented**: %d\n", p.Presented)
		fmt.Fprintf(&b, "- **Reached end**: %s\n", yesNo(p.Ended))
		fmt.Fprintf(&b, "- **Wall time**: %s\n", p.WallTime.Round(time.Millisecond))
	}

	return b.String()
}

func writeStreamRow(b *strings.Builder, name, codec, decoder, format string, t TimelineInfo) {
	fmt.Fprintf(b, "| %s | %s | %s | %s | %d | %.3f | %.3f | %.2f fps | %.3f s |\n",
		name, codec, decoder, format, t.Frames, t.First, t.Last, t.Rate, t.MaxGap)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
