package printer

import "strings"

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders counts as a row of block characters scaled to peak. Zero
// counts render as a space so quiet periods stand out. A peak below 1 is
// treated as 1.
func Sparkline(counts []int, peak int) string {
	if peak < 1 {
		peak = 1
	}

	var b strings.Builder
	for _, c := range counts {
		if c <= 0 {
			b.WriteByte(' ')
			continue
		}
		idx := (c*len(sparkLevels) - 1) / peak
		idx = min(idx, len(sparkLevels)-1)
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}

// Spark prints label followed by a colored sparkline and a trailing detail.
func (p *Printer) Spark(label string, counts []int, peak int, detail string) {
	line := label + " " + p.colorize(ColorGreen, Sparkline(counts, peak))
	if detail != "" {
		line += " " + p.colorize(ColorGray, detail)
	}
	_, _ = p.writer.Write([]byte(line + "\n"))
}
