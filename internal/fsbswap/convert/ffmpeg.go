package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
)

var commandContext = exec.CommandContext

// FFmpeg はffmpegを使って入力をPCMに変換します
type FFmpeg struct {
	binary   string
	settings AudioSettings
	logger   *slog.Logger
}

// Option はFFmpegの設定です
type Option func(*FFmpeg)

// WithBinary は実行ファイルのパスを指定します
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// WithSettings は音量・ピッチ・速度の調整を指定します
func WithSettings(s AudioSettings) Option {
	return func(f *FFmpeg) {
		f.settings = s
	}
}

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) Option {
	return func(f *FFmpeg) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFFmpeg は新しいFFmpegを作成します
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{binary: "ffmpeg", settings: AudioSettings{Speed: 1}, logger: logging.Discard()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Args はffmpegに渡す引数を返します
func (f *FFmpeg) Args(target models.Target) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}
	if filters := f.settings.Filters(target.SampleRate); len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}
	return append(args,
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels),
		"-f", "s16le",
		"pipe:1",
	)
}

// Convert は FormatConverter の実装です
func (f *FFmpeg) Convert(ctx context.Context, data []byte, target models.Target) (pcm.Buffer, error) {
	if err := validateTarget(target); err != nil {
		return pcm.Buffer{}, err
	}

	args := f.Args(target)
	f.logger.Debug("ffmpegを実行します", slog.String("binary", f.binary), slog.Any("args", args))

	var stdout, stderr bytes.Buffer
	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pcm.Buffer{}, ctxErr
		}
		return pcm.Buffer{}, fmt.Errorf("%w: %w: %s", ErrFFmpegFailed, err, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	frameBytes := 2 * target.Channels
	raw = raw[:len(raw)-len(raw)%frameBytes]
	buf, err := pcm.FromBytes(raw, target.SampleRate, target.Channels)
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("%w: %w", ErrFFmpegFailed, err)
	}
	return buf, nil
}
