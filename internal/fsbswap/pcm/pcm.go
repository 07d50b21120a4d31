// Package pcm は16ビットPCMバッファとWAVの読み書きを提供します
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidFormat はサンプルレートまたはチャンネル数が不正な場合のエラー
	ErrInvalidFormat = errors.New("PCMの形式が不正です")

	// ErrPartialFrame はデータ長がフレーム境界に揃っていない場合のエラー
	ErrPartialFrame = errors.New("PCMデータがフレーム境界で終わっていません")
)

// Buffer はインターリーブされた16ビットPCMです
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Validate は形式が妥当か確認します
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return fmt.Errorf("%w: %dHz %dch", ErrInvalidFormat, b.SampleRate, b.Channels)
	}
	if len(b.Samples)%b.Channels != 0 {
		return ErrPartialFrame
	}
	return nil
}

// Frames はフレーム数を返します
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration は再生時間を返します
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Bytes はリトルエンディアンのs16leバイト列を返します
func (b Buffer) Bytes() []byte {
	out := make([]byte, 0, len(b.Samples)*2)
	for _, s := range b.Samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

// FromBytes はs16leバイト列からBufferを作成します
func FromBytes(data []byte, sampleRate, channels int) (Buffer, error) {
	b := Buffer{SampleRate: sampleRate, Channels: channels}
	if len(data)%2 != 0 {
		return Buffer{}, ErrPartialFrame
	}
	b.Samples = make([]int16, len(data)/2)
	for i := range b.Samples {
		b.Samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	if err := b.Validate(); err != nil {
		return Buffer{}, err
	}
	return b, nil
}

// Matches は形式が target と一致するかどうかを返します
func (b Buffer) Matches(sampleRate, channels int) bool {
	return b.SampleRate == sampleRate && b.Channels == channels
}
