package synth

import "context"

// PCM is a raw chunk of rendered speech: 16-bit little-endian samples.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Samples returns the sample count per channel.
func (p PCM) Samples() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Data) / 2 / p.Channels
}

// RenderFunc turns one text chunk into audio. The orchestrator knows
// nothing about how synthesis works: voice is an opaque token resolved
// upstream and passed through unmodified. Implementations must honor
// ctx cancellation.
type RenderFunc func(ctx context.Context, chapterTitle, chunk, voice string) (PCM, error)
