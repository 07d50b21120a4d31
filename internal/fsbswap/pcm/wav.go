package pcm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrNotWAV はWAVファイルではない場合のエラー
	ErrNotWAV = errors.New("WAVファイルではありません")

	// ErrUnsupportedWAV は16ビットPCM以外のWAVの場合のエラー
	ErrUnsupportedWAV = errors.New("16ビットPCM以外のWAVには対応していません")
)

const wavFormatPCM = 1

// DecodeWAV は16ビットPCMのWAVを読み込みます
func DecodeWAV(data []byte) (Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return Buffer{}, ErrNotWAV
	}
	if d.WavAudioFormat != wavFormatPCM || d.BitDepth != 16 {
		return Buffer{}, fmt.Errorf("%w: format=%d bits=%d", ErrUnsupportedWAV, d.WavAudioFormat, d.BitDepth)
	}

	ib, err := d.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("WAVの読み込みに失敗しました: %w", err)
	}

	b := Buffer{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		Samples:    make([]int16, len(ib.Data)),
	}
	for i, v := range ib.Data {
		b.Samples[i] = int16(v)
	}
	if err := b.Validate(); err != nil {
		return Buffer{}, err
	}
	return b, nil
}

// EncodeWAV はBufferを16ビットPCMのWAVとして書き出します
func EncodeWAV(w io.WriteSeeker, b Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	enc := wav.NewEncoder(w, b.SampleRate, 16, b.Channels, wavFormatPCM)

	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           make([]int, len(b.Samples)),
		SourceBitDepth: 16,
	}
	for i, s := range b.Samples {
		ib.Data[i] = int(s)
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("WAVの書き込みに失敗しました: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("WAVの書き込みに失敗しました: %w", err)
	}
	return nil
}

// WAV はBufferをWAVのバイト列にします
func (b Buffer) WAV() ([]byte, error) {
	var f memFile
	if err := EncodeWAV(&f, b); err != nil {
		return nil, err
	}
	return f.buf, nil
}

// memFile はメモリ上の io.WriteSeeker
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(m.pos) + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("不正なwhence: %d", whence)
	}
	if pos < 0 {
		return 0, errors.New("負の位置にはシークできません")
	}
	m.pos = int(pos)
	return pos, nil
}
