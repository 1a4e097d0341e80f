package indicator

import (
	"math"
	"time"
)

const (
	toneSampleRate = 16000
	toneVolume     = 0.18
	toneGap        = 22 * time.Millisecond
	toneMaxRamp    = 5 * time.Millisecond
)

// tone is one sine segment of a cue.
type tone struct {
	hz float64
	d  time.Duration
}

// render concatenates tones with a short silence between them.
func render(tones ...tone) []int16 {
	var pcm []int16
	for i, tn := range tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, sampleCount(toneGap))...)
		}
		pcm = append(pcm, sine(tn.hz, tn.d, toneVolume)...)
	}
	return pcm
}

// sine renders a tone with a linear attack and release so segment edges do
// not click.
func sine(hz float64, d time.Duration, volume float64) []int16 {
	n := sampleCount(d)
	if n == 0 || hz <= 0 || volume <= 0 {
		return nil
	}
	ramp := min(max(n/10, 1), sampleCount(toneMaxRamp))

	pcm := make([]int16, n)
	for i := range pcm {
		gain := min(1.0, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
		phase := 2 * math.Pi * hz * float64(i) / toneSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * volume * gain * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * toneSampleRate))
}
