package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

const (
	defaultStartTimeout = 10 * time.Second
	maxFrameSize        = 16 << 20
)

// FFmpegDevice reads a V4L2 camera through an ffmpeg subprocess that
// writes MJPEG frames to stdout.
type FFmpegDevice struct {
	Path         string // e.g. /dev/video0
	Format       string // ffmpeg input format, v4l2 when empty
	Binary       string // ffmpeg executable, "ffmpeg" when empty
	StartTimeout time.Duration
	Logger       *zap.Logger
}

func (d *FFmpegDevice) ID() string {
	return d.Path
}

// Open starts ffmpeg and waits for the first frame.
func (d *FFmpegDevice) Open(ctx context.Context, res Resolution) (Stream, error) {
	if err := checkDeviceFile(d.Path); err != nil {
		return nil, err
	}

	binary := d.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrDeviceUnavailable, binary, err)
	}

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(binary, d.args(res.orDefault())...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %v", ErrDeviceUnavailable, binary, err)
	}

	s := &ffmpegStream{
		FrameBuffer: NewFrameBuffer(),
		cmd:         cmd,
		exited:      make(chan struct{}),
	}
	go s.read(stdout, stderr, logger.With(zap.String("device", d.Path)))

	timeout := d.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, _, err := s.Next(waitCtx, 0); err != nil {
		s.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no frame within %s", ErrDeviceUnavailable, timeout)
		}
		return nil, err
	}
	return s, nil
}

func (d *FFmpegDevice) args(res Resolution) []string {
	format := d.Format
	if format == "" {
		format = "v4l2"
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format,
		"-video_size", strconv.Itoa(res.Width) + "x" + strconv.Itoa(res.Height),
		"-i", d.Path,
		"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "3",
		"-",
	}
}

// checkDeviceFile maps a missing or unreadable device node to the capture errors.
func checkDeviceFile(path string) error {
	f, err := os.Open(path)
	switch {
	case err == nil:
		return f.Close()
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
}

type ffmpegStream struct {
	*FrameBuffer
	cmd       *exec.Cmd
	exited    chan struct{}
	closeOnce sync.Once
}

func (s *ffmpegStream) read(stdout io.Reader, stderr *bytes.Buffer, logger *zap.Logger) {
	defer close(s.exited)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 1<<20), maxFrameSize)
	scanner.Split(SplitJPEG)
	for scanner.Scan() {
		frame := make([]byte, len(scanner.Bytes()))
		copy(frame, scanner.Bytes())
		s.Publish(frame)
	}
	scanErr := scanner.Err()
	waitErr := s.cmd.Wait()

	// stderr is only safe to read after Wait
	err := classifyFFmpeg(stderr.String(), errors.Join(scanErr, waitErr))
	if err != nil {
		logger.Warn("camera stream ended", zap.Error(err))
	} else {
		logger.Debug("camera stream ended")
	}
	s.Finish(err)
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.Finish(nil)
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-s.exited
	})
	return nil
}

// classifyFFmpeg turns ffmpeg's exit status and log output into a capture error.
func classifyFFmpeg(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if err == nil && msg == "" {
		return nil
	}
	if msg == "" {
		msg = err.Error()
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "operation not permitted") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, lastLine(msg))
	}
	return fmt.Errorf("%w: %s", ErrDeviceUnavailable, lastLine(msg))
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// SplitJPEG is a bufio.SplitFunc that yields complete JPEG images delimited
// by the SOI and EOI markers. Bytes before an SOI marker are dropped.
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		// keep a trailing 0xFF, it may be the first half of a marker
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+2:], jpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + 2 + end + 2
	return stop, data[start:stop], nil
}
