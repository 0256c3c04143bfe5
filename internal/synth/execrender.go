package synth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"

	shellwords "github.com/mattn/go-shellwords"
)

// ExecRenderer shells out to an external TTS command for every chunk.
// The command receives a JSON request on stdin and answers with one
// JSON object per line on stdout, each carrying a base64 PCM payload.
type ExecRenderer struct {
	argv       []string
	sampleRate int
	channels   int
}

type execRequest struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
}

// NewExecRenderer parses the command line shell-style. The command is
// spawned once per chunk, so stateless TTS CLIs work unmodified.
func NewExecRenderer(command string, sampleRate, channels int) (*ExecRenderer, error) {
	argv, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("tts sample rate and channels must be positive")
	}
	return &ExecRenderer{argv: argv, sampleRate: sampleRate, channels: channels}, nil
}

// Render implements RenderFunc.
func (r *ExecRenderer) Render(ctx context.Context, chapterTitle, chunk, voice string) (PCM, error) {
	payload, err := json.Marshal(execRequest{
		Title:      chapterTitle,
		Text:       chunk,
		Voice:      voice,
		SampleRate: r.sampleRate,
		Channels:   r.channels,
	})
	if err != nil {
		return PCM{}, err
	}

	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return PCM{}, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return PCM{}, fmt.Errorf("start tts command: %w", err)
	}

	var pcm []byte
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			cmd.Wait()
			return PCM{}, fmt.Errorf("decode tts response: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
		if err != nil {
			cmd.Wait()
			return PCM{}, fmt.Errorf("decode tts payload: %w", err)
		}
		pcm = append(pcm, data...)
		if resp.Final {
			break
		}
	}
	if err := cmd.Wait(); err != nil {
		return PCM{}, fmt.Errorf("tts command failed: %w: %s", err, stderr.String())
	}
	if err := scanner.Err(); err != nil {
		return PCM{}, err
	}

	return PCM{Data: pcm, SampleRate: r.sampleRate, Channels: r.channels}, nil
}
