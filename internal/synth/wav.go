package synth

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmToSamples decodes 16-bit little-endian PCM bytes into ints.
func pcmToSamples(data []byte) ([]int, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm payload not 16-bit aligned")
	}
	samples := make([]int, len(data)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return samples, nil
}

// silenceSamples returns ms milliseconds of zero samples.
func silenceSamples(ms int64, sampleRate, channels int) []int {
	n := int(ms) * sampleRate * channels / 1000
	if n <= 0 {
		return nil
	}
	return make([]int, n)
}

// samplesDurationMS converts a sample count to milliseconds.
func samplesDurationMS(samples, sampleRate, channels int) int64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return int64(samples) * 1000 / int64(sampleRate*channels)
}

// writeWAV encodes the accumulated samples as a 16-bit WAV file.
func writeWAV(path string, samples []int, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   samples,
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return f.Close()
}
