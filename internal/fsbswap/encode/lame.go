package encode

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Lame はffmpegのlibmp3lameでMPEGにエンコードします
type Lame struct {
	binary string
	logger *slog.Logger
}

// LameOption はLameの設定です
type LameOption func(*Lame)

// WithLameBinary はffmpegのパスを指定します
func WithLameBinary(binary string) LameOption {
	return func(l *Lame) {
		if binary != "" {
			l.binary = binary
		}
	}
}

// WithLameLogger はロガーを設定します
func WithLameLogger(logger *slog.Logger) LameOption {
	return func(l *Lame) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLame は新しいLameを作成します
func NewLame(opts ...LameOption) *Lame {
	l := &Lame{binary: "ffmpeg", logger: logging.Discard()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Args はffmpegに渡す引数を返します
func (l *Lame) Args(buf pcm.Buffer, bitrate int) []string {
	if bitrate <= 0 {
		bitrate = 192
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
		"-acodec", "libmp3lame",
		"-b:a", strconv.Itoa(bitrate) + "k",
		"-write_xing", "0",
		"-id3v2_version", "0",
		"-f", "mp3",
		"pipe:1",
	}
}

// Encode は SampleEncoder の実装です
func (l *Lame) Encode(ctx context.Context, buf pcm.Buffer, opts models.EncodeOptions) (models.Encoded, error) {
	if opts.Codec != fsb.CodecMPEG {
		return models.Encoded{}, fmt.Errorf("%w: LAMEは %s を出力できません", ErrUnsupportedCodec, opts.Codec)
	}
	if err := buf.Validate(); err != nil {
		return models.Encoded{}, err
	}

	args := l.Args(buf, opts.Bitrate)
	l.logger.Debug("ffmpeg(libmp3lame)を実行します", slog.String("binary", l.binary), slog.Any("args", args))

	var stdout, stderr bytes.Buffer
	cmd := commandContext(ctx, l.binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(buf.Bytes())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Encoded{}, ctxErr
		}
		return models.Encoded{}, fmt.Errorf("%w: %w: %s", ErrEncoderFailed, err, strings.TrimSpace(stderr.String()))
	}

	payload := fsb.ExtractMPEGFrames(stdout.Bytes())
	info, ok := fsb.ProbeMPEG(payload)
	if !ok {
		return models.Encoded{}, fmt.Errorf("%w: MPEGフレームが見つかりません", ErrInvalidOutput)
	}
	if info.SampleRate != buf.SampleRate {
		return models.Encoded{}, fmt.Errorf("%w: %dHz (入力 %dHz)", ErrFormatMismatch, info.SampleRate, buf.SampleRate)
	}

	return models.Encoded{
		Payload: payload,
		Meta: fsb.SampleMetadata{
			Frames:     uint32(buf.Frames()),
			Channels:   info.Channels,
			SampleRate: info.SampleRate,
		},
	}, nil
}
