package encode

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Fsbank はFMODのfsbankclでVorbisにエンコードします
type Fsbank struct {
	binary  string
	tempDir string
	logger  *slog.Logger
}

// FsbankOption はFsbankの設定です
type FsbankOption func(*Fsbank)

// WithFsbankBinary は実行ファイルのパスを指定します
func WithFsbankBinary(binary string) FsbankOption {
	return func(f *Fsbank) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// WithTempDir は作業ディレクトリを作る場所を指定します
func WithTempDir(dir string) FsbankOption {
	return func(f *Fsbank) {
		f.tempDir = dir
	}
}

// WithFsbankLogger はロガーを設定します
func WithFsbankLogger(logger *slog.Logger) FsbankOption {
	return func(f *Fsbank) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFsbank は新しいFsbankを作成します
func NewFsbank(opts ...FsbankOption) *Fsbank {
	f := &Fsbank{binary: "fsbankcl", logger: logging.Discard()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Args はfsbankclに渡す引数を返します
func (f *Fsbank) Args(quality int, output, input string) []string {
	return []string{"-format", "vorbis", "-quality", strconv.Itoa(quality), "-o", output, input}
}

// Encode は SampleEncoder の実装です
func (f *Fsbank) Encode(ctx context.Context, buf pcm.Buffer, opts models.EncodeOptions) (models.Encoded, error) {
	if opts.Codec != fsb.CodecVorbis {
		return models.Encoded{}, fmt.Errorf("%w: fsbankcl は %s を出力できません", ErrUnsupportedCodec, opts.Codec)
	}
	if err := buf.Validate(); err != nil {
		return models.Encoded{}, err
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = 50
	}

	dir, err := os.MkdirTemp(f.tempDir, "fsbswap-*")
	if err != nil {
		return models.Encoded{}, fmt.Errorf("作業ディレクトリを作成できません: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.wav")
	output := filepath.Join(dir, "output.fsb")
	if err := writeWAV(input, buf); err != nil {
		return models.Encoded{}, err
	}

	args := f.Args(quality, output, input)
	f.logger.Debug("fsbankclを実行します", slog.String("binary", f.binary), slog.Any("args", args))

	var out bytes.Buffer
	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	if d := filepath.Dir(f.binary); d != "." {
		// fsbankcl は同じディレクトリのDLLを読み込む
		cmd.Dir = d
	}
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Encoded{}, ctxErr
		}
		return models.Encoded{}, fmt.Errorf("%w: %w: %s", ErrEncoderFailed, err, strings.TrimSpace(out.String()))
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return models.Encoded{}, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	return decodeFsbankOutput(data, buf)
}

func writeWAV(path string, buf pcm.Buffer) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WAVファイルを作成できません: %w", err)
	}
	if err := pcm.EncodeWAV(file, buf); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// decodeFsbankOutput はfsbankclが出力した単一サンプルのバンクからペイロードを取り出します
func decodeFsbankOutput(data []byte, buf pcm.Buffer) (models.Encoded, error) {
	bank, err := fsb.Parse(data, fsb.ProfileDS2SotFS)
	if err != nil {
		return models.Encoded{}, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if bank.Len() == 0 {
		return models.Encoded{}, fmt.Errorf("%w: サンプルがありません", ErrInvalidOutput)
	}
	entry, err := bank.EntryAt(0)
	if err != nil {
		return models.Encoded{}, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	payload, err := bank.PayloadAt(0)
	if err != nil {
		return models.Encoded{}, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if entry.SampleRate != buf.SampleRate || entry.Channels != buf.Channels {
		return models.Encoded{}, fmt.Errorf("%w: %dHz %dch (入力 %dHz %dch)",
			ErrFormatMismatch, entry.SampleRate, entry.Channels, buf.SampleRate, buf.Channels)
	}

	return models.Encoded{
		Payload: payload,
		Meta: fsb.SampleMetadata{
			Frames:     entry.Frames,
			Channels:   entry.Channels,
			SampleRate: entry.SampleRate,
			LoopStart:  entry.LoopStart,
			LoopEnd:    entry.LoopEnd,
			HasLoop:    entry.HasLoop,
			VorbisCRC:  entry.VorbisCRC,
			SeekTable:  entry.SeekTable,
		},
	}, nil
}
