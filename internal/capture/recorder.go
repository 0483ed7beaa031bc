package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Recorder state machine. Transitions are strict: Pause is only legal while
// recording, Resume only while paused.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrAlreadyStarted = errors.New("recorder already started")
	ErrNotRecording   = errors.New("recorder is not recording")
	ErrAlreadyPaused  = errors.New("recorder is already paused")
	ErrNotPaused      = errors.New("recorder is not paused")
	ErrStopped        = errors.New("recorder is stopped")
)

// Result is the finished recording.
type Result struct {
	Bytes  []byte
	Frames int
}

// Recorder accepts rendered frames and produces a finished video container.
// Frames appended while paused are discarded and accrue no output duration.
type Recorder interface {
	Start() error
	AppendFrame(img image.Image) error
	Pause() error
	Resume() error
	Stop() (Result, error)
	State() State
}

// RecorderOptions configures an FFmpegRecorder.
type RecorderOptions struct {
	Binary  string // defaults to "ffmpeg"
	FPS     int    // defaults to 30
	Bitrate string // defaults to "5M"
	Width   int
	Height  int
	Logger  *slog.Logger
}

// FFmpegRecorder encodes PNG frames piped to an ffmpeg child process. The MP4
// muxer needs a seekable output, so encoding goes to a temp file that Stop
// reads back.
type FFmpegRecorder struct {
	opts RecorderOptions

	mu      sync.Mutex
	state   State
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	outPath string
	frames  int
	pngBuf  bytes.Buffer
}

// NewFFmpegRecorder returns an idle recorder; Start launches the encoder.
func NewFFmpegRecorder(opts RecorderOptions) *FFmpegRecorder {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Bitrate == "" {
		opts.Bitrate = "5M"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &FFmpegRecorder{opts: opts, state: StateIdle}
}

// probeEncoder picks libx264 when the ffmpeg build carries it, mpeg4
// otherwise.
func probeEncoder(binary string) string {
	out, err := exec.Command(binary, "-hide_banner", "-encoders").Output()
	if err == nil && bytes.Contains(out, []byte("libx264")) {
		return "libx264"
	}
	return "mpeg4"
}

func (r *FFmpegRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateRecording, StatePaused:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	codec := probeEncoder(r.opts.Binary)
	tmp, err := os.MkdirTemp("", "recap-encode-")
	if err != nil {
		return fmt.Errorf("recorder temp dir: %w", err)
	}
	r.outPath = filepath.Join(tmp, "capture.mp4")

	args := []string{
		"-y",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-r", fmt.Sprintf("%d", r.opts.FPS),
		"-i", "-",
		"-c:v", codec,
		"-b:v", r.opts.Bitrate,
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", r.opts.FPS),
		r.outPath,
	}
	cmd := exec.Command(r.opts.Binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("recorder stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	r.opts.Logger.Debug("recorder started", "codec", codec, "fps", r.opts.FPS, "bitrate", r.opts.Bitrate)

	r.cmd = cmd
	r.stdin = stdin
	r.state = StateRecording
	return nil
}

func (r *FFmpegRecorder) AppendFrame(img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StatePaused:
		return nil
	case StateRecording:
	default:
		return ErrNotRecording
	}

	r.pngBuf.Reset()
	if err := png.Encode(&r.pngBuf, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := r.stdin.Write(r.pngBuf.Bytes()); err != nil {
		return fmt.Errorf("write frame to ffmpeg: %w", err)
	}
	r.frames++
	return nil
}

func (r *FFmpegRecorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StatePaused:
		return ErrAlreadyPaused
	case StateRecording:
		r.state = StatePaused
		return nil
	}
	return ErrNotRecording
}

func (r *FFmpegRecorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return ErrNotPaused
	}
	r.state = StateRecording
	return nil
}

func (r *FFmpegRecorder) Stop() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateRecording, StatePaused:
	default:
		return Result{}, ErrNotRecording
	}
	r.state = StateStopped

	if err := r.stdin.Close(); err != nil {
		return Result{}, fmt.Errorf("close ffmpeg stdin: %w", err)
	}
	if err := r.cmd.Wait(); err != nil {
		return Result{}, fmt.Errorf("ffmpeg encode: %w", err)
	}
	data, err := os.ReadFile(r.outPath)
	if err != nil {
		return Result{}, fmt.Errorf("read encoded output: %w", err)
	}
	os.RemoveAll(filepath.Dir(r.outPath))
	r.opts.Logger.Debug("recorder stopped", "frames", r.frames, "bytes", len(data))
	return Result{Bytes: data, Frames: r.frames}, nil
}

func (r *FFmpegRecorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
