package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Playback Summary\n\n")
	fmt.Fprintf(&b, "Generated at %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Input\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	row(&b, "File", s.Input.URI)
	if s.Input.Size > 0 {
		row(&b, "Size", formatBytes(s.Input.Size))
	}
	if s.Media.Duration > 0 {
		row(&b, "Duration", fmt.Sprintf("%.3f s", s.Media.Duration.Seconds()))
	}
	row(&b, "Video", fmt.Sprintf("%s %dx%d @ %.3f fps",
		s.Media.VideoCodec, s.Media.VideoWidth, s.Media.VideoHeight, s.Media.FrameRate))
	if s.Media.HasAudio() {
		row(&b, "Audio", fmt.Sprintf("%s %d Hz, %d channels",
			s.Media.AudioCodec, s.Media.AudioSampleRate, s.Media.AudioChannels))
	} else {
		row(&b, "Audio", "none")
	}
	b.WriteString("\n")

	b.WriteString("## Settings\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	row(&b, "Speed", fmt.Sprintf("%.2fx", s.Settings.Speed))
	row(&b, "Pacing", onOff(s.Settings.Pace))
	row(&b, "Renderer", s.Settings.Renderer)
	if s.Settings.VideoOutput != "" {
		row(&b, "Video output", s.Settings.VideoOutput)
	}
	if s.Settings.AudioOutput != "" {
		row(&b, "Audio output", fmt.Sprintf("%s (%s)", s.Settings.AudioOutput, formatFormat(s.Settings.SampleRate, s.Settings.Channels)))
	} else {
		row(&b, "Audio output", "disabled")
	}
	b.WriteString("\n")

	r := s.Result
	b.WriteString("## Result\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	row(&b, "State", r.State)
	if r.Error != "" {
		row(&b, "Error", r.Error)
	}
	row(&b, "Elapsed", fmt.Sprintf("%.3f s", r.Elapsed.Seconds()))
	if rt := s.Realtime(); rt > 0 {
		row(&b, "Speed vs. realtime", fmt.Sprintf("%.2fx", rt))
	}
	row(&b, "Video units", fmt.Sprint(r.Stats.VideoUnits))
	row(&b, "Audio units", fmt.Sprint(r.Stats.AudioUnits))
	row(&b, "Frames decoded", fmt.Sprint(r.Stats.FramesDecoded))
	row(&b, "Frames presented", fmt.Sprint(r.Stats.FramesPresented))
	row(&b, "Frames dropped", fmt.Sprint(r.Stats.FramesDropped))
	row(&b, "Decode errors", fmt.Sprint(r.Stats.DecodeErrors))
	row(&b, "Present errors", fmt.Sprint(r.Stats.PresentErrors))
	row(&b, "Audio frames", fmt.Sprint(r.Stats.AudioFrames))
	row(&b, "PCM", formatBytes(r.Stats.PCMBytes))
	row(&b, "Seeks", fmt.Sprint(r.Stats.Seeks))

	return b.String()
}

func row(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", name, strings.ReplaceAll(value, "|", "\\|"))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatFormat(rate, channels int) string {
	r, c := "source rate", "source channels"
	if rate > 0 {
		r = fmt.Sprintf("%d Hz", rate)
	}
	if channels > 0 {
		c = fmt.Sprintf("%d ch", channels)
	}
	return r + ", " + c
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
