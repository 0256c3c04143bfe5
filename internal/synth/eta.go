package synth

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// UnknownETA is displayed until enough throughput has been observed to
// estimate remaining time.
const UnknownETA = "--:--:--"

// Tracker blends global throughput with completed-chapter rates into a
// remaining-time estimate. The 60/40 blend lets a handful of unusually
// fast or slow chapters temper the estimate without whipsawing it.
type Tracker struct {
	mu             sync.Mutex
	totalChars     int
	start          time.Time
	processedChars int
	chapterRates   []float64

	now func() time.Time
}

// NewTracker starts tracking against the given total character count.
func NewTracker(totalChars int) *Tracker {
	t := &Tracker{totalChars: totalChars, now: time.Now}
	t.start = t.now()
	return t
}

// Update records chars rendered since the last update.
func (t *Tracker) Update(chars int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processedChars += chars
}

// ChapterComplete records one finished chapter's observed rate.
func (t *Tracker) ChapterComplete(chars int, elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chapterRates = append(t.chapterRates, float64(chars)/elapsed.Seconds())
}

// Rate returns the blended chars-per-second estimate, or 0 until at
// least one second has elapsed and some characters have been processed.
func (t *Tracker) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rateLocked()
}

func (t *Tracker) rateLocked() float64 {
	elapsed := t.now().Sub(t.start)
	if elapsed < time.Second || t.processedChars == 0 {
		return 0
	}
	rate := float64(t.processedChars) / elapsed.Seconds()
	if len(t.chapterRates) > 0 {
		var sum float64
		for _, r := range t.chapterRates {
			sum += r
		}
		rate = 0.6*rate + 0.4*(sum/float64(len(t.chapterRates)))
	}
	return rate
}

// FormatETA renders the remaining time as HH:MM:SS, or the unknown
// sentinel when no rate is available yet.
func (t *Tracker) FormatETA() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	rate := t.rateLocked()
	if rate <= 0 {
		return UnknownETA
	}
	remaining := float64(t.totalChars-t.processedChars) / rate
	if remaining < 0 {
		remaining = 0
	}
	return formatClock(time.Duration(remaining * float64(time.Second)))
}

// FormatElapsed renders time since tracking started as HH:MM:SS.
func (t *Tracker) FormatElapsed() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return formatClock(t.now().Sub(t.start))
}

// FormatRate renders the blended rate as a human-readable
// chars-per-second figure.
func (t *Tracker) FormatRate() string {
	rate := t.Rate()
	if rate <= 0 {
		return "0.0"
	}
	return humanize.CommafWithDigits(rate, 1)
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
