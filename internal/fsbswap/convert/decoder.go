package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/h2non/filetype"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/pcm"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// decoded はデコード直後の浮動小数点PCMです
type decoded struct {
	sampleRate int
	channels   int
	samples    []float32 // インターリーブ、-1〜1
}

type decodeFunc func(data []byte) (decoded, error)

var decoders = map[string]decodeFunc{
	"wav":  decodeWAV,
	"aiff": decodeAIFF,
	"mp3":  decodeMP3,
	"ogg":  decodeOggVorbis,
	"flac": decodeFLAC,
}

// Decoder は外部ツールを使わずにWAV・AIFF・MP3・Ogg Vorbis・FLACを変換します
type Decoder struct {
	logger *slog.Logger
}

// DecoderOption はDecoderの設定です
type DecoderOption func(*Decoder)

// WithDecoderLogger はロガーを設定します
func WithDecoderLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDecoder は新しいDecoderを作成します
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{logger: logging.Discard()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sniff は入力の形式名を返します。判別できない場合は空文字列です
func Sniff(data []byte) string {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		if _, ok := decoders[kind.Extension]; ok {
			return kind.Extension
		}
	}
	// ID3タグのないMP3はフレーム同期で判定する
	if _, ok := fsb.ProbeMPEG(data); ok {
		return "mp3"
	}
	return ""
}

// Convert は FormatConverter の実装です
func (d *Decoder) Convert(ctx context.Context, data []byte, target models.Target) (pcm.Buffer, error) {
	if err := validateTarget(target); err != nil {
		return pcm.Buffer{}, err
	}

	kind := Sniff(data)
	decode, ok := decoders[kind]
	if !ok {
		return pcm.Buffer{}, ErrUnsupportedInput
	}

	src, err := decode(data)
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("%w: %s: %w", ErrDecode, kind, err)
	}
	if src.channels <= 0 || src.sampleRate <= 0 {
		return pcm.Buffer{}, fmt.Errorf("%w: %s: %dHz %dch", ErrDecode, kind, src.sampleRate, src.channels)
	}
	if err := ctx.Err(); err != nil {
		return pcm.Buffer{}, err
	}

	d.logger.Debug("入力をデコードしました",
		slog.String("format", kind),
		slog.Int("sample_rate", src.sampleRate),
		slog.Int("channels", src.channels),
		slog.Int("frames", len(src.samples)/src.channels),
	)

	samples := mixChannels(src.samples, src.channels, target.Channels)
	samples = resample(samples, target.Channels, src.sampleRate, target.SampleRate)
	if err := ctx.Err(); err != nil {
		return pcm.Buffer{}, err
	}

	out := pcm.Buffer{
		SampleRate: target.SampleRate,
		Channels:   target.Channels,
		Samples:    make([]int16, len(samples)),
	}
	for i, v := range samples {
		out.Samples[i] = floatToInt16(v)
	}
	return out, nil
}

func fromIntBuffer(ib *audio.IntBuffer, bitDepth int) (decoded, error) {
	if ib == nil || ib.Format == nil {
		return decoded{}, errors.New("形式情報がありません")
	}
	out := decoded{
		sampleRate: ib.Format.SampleRate,
		channels:   ib.Format.NumChannels,
		samples:    make([]float32, len(ib.Data)),
	}
	for i, v := range ib.Data {
		out.samples[i] = intToFloat(v, bitDepth)
	}
	return out, nil
}

func decodeWAV(data []byte) (decoded, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return decoded{}, pcm.ErrNotWAV
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return decoded{}, err
	}
	return fromIntBuffer(ib, int(d.BitDepth))
}

func decodeAIFF(data []byte) (decoded, error) {
	d := aiff.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return decoded{}, errors.New("AIFFファイルではありません")
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return decoded{}, err
	}
	return fromIntBuffer(ib, int(d.BitDepth))
}

func decodeMP3(data []byte) (decoded, error) {
	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return decoded{}, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return decoded{}, err
	}
	// go-mp3 は常にステレオの16ビットPCMを出力する
	buf, err := pcm.FromBytes(raw[:len(raw)&^3], dec.SampleRate(), 2)
	if err != nil {
		return decoded{}, err
	}
	out := decoded{sampleRate: buf.SampleRate, channels: 2, samples: make([]float32, len(buf.Samples))}
	for i, v := range buf.Samples {
		out.samples[i] = float32(v) / 32768
	}
	return out, nil
}

func decodeOggVorbis(data []byte) (decoded, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return decoded{}, err
	}
	return decoded{sampleRate: format.SampleRate, channels: format.Channels, samples: samples}, nil
}

func decodeFLAC(data []byte) (decoded, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return decoded{}, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bits := int(stream.Info.BitsPerSample)
	out := decoded{sampleRate: int(stream.Info.SampleRate), channels: channels}
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return decoded{}, err
		}
		if len(frame.Subframes) < channels {
			return decoded{}, fmt.Errorf("サブフレーム数 %d がチャンネル数 %d より少ない", len(frame.Subframes), channels)
		}
		n := frame.Subframes[0].NSamples
		for i := range n {
			for c := range channels {
				out.samples = append(out.samples, intToFloat(int(frame.Subframes[c].Samples[i]), bits))
			}
		}
	}
	return out, nil
}
