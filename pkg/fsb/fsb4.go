package fsb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// FSB4 形式の定数
const (
	fsb4HeaderSize       = 48
	fsb4SampleHeaderSize = 80
	fsb4NameSize         = 30

	// ヘッダーのフラグ
	fsb4FlagMPEG = 0x00200000

	// サンプルモード
	fsound4LoopOff    = 0x00000001
	fsound4LoopNormal = 0x00000002
	fsound4LoopBidi   = 0x00000004
	fsound4Mono       = 0x00000020
	fsound4Stereo     = 0x00000040
	fsound4MPEG       = 0x00000200
)

// サンプルヘッダー内のフィールド位置
const (
	fsb4OffName        = 2
	fsb4OffFrames      = 32
	fsb4OffCompressed  = 36
	fsb4OffLoopStart   = 40
	fsb4OffLoopEnd     = 44
	fsb4OffMode        = 48
	fsb4OffDefFreq     = 52
	fsb4OffNumChannels = 62
)

func parseFSB4(buf []byte, b *Bank, spec ProfileSpec, decryptData func([]byte)) error {
	le := binary.LittleEndian
	if len(buf) < fsb4HeaderSize {
		return formatError("ヘッダー読み込み", 0, ErrTruncated)
	}

	numSamples := int64(le.Uint32(buf[4:]))
	shs := int64(le.Uint32(buf[8:]))
	dataSize := int64(le.Uint32(buf[12:]))
	flags := le.Uint32(buf[20:])

	dataStart := fsb4HeaderSize + shs
	dataEnd := dataStart + dataSize
	if dataEnd > int64(len(buf)) {
		return formatError("ヘッダー読み込み", 12, fmt.Errorf("%w: データ終端 %d > ファイルサイズ %d", ErrTruncated, dataEnd, len(buf)))
	}
	if numSamples*fsb4SampleHeaderSize > shs {
		return formatError("ヘッダー読み込み", 4, fmt.Errorf("%w: サンプル数 %d に対してサンプルヘッダー領域が %d バイトしかありません", ErrTruncated, numSamples, shs))
	}
	if decryptData != nil {
		decryptData(buf[dataStart:dataEnd])
	}

	b.header = Header{Version: FSB4, FixedHeaderSize: fsb4HeaderSize}
	b.headerRaw = bytes.Clone(buf[:fsb4HeaderSize])

	isMPEG := flags&fsb4FlagMPEG != 0
	pos := int64(fsb4HeaderSize)
	b.entries = make([]SampleEntry, 0, numSamples)
	for i := range int(numSamples) {
		if pos+2 > dataStart {
			return formatError("サンプルヘッダー読み込み", pos, ErrTruncated)
		}
		size := int64(le.Uint16(buf[pos:]))
		if size < fsb4SampleHeaderSize {
			return formatError("サンプルヘッダー読み込み", pos, fmt.Errorf("%w: サンプル %d のヘッダー長 %d", ErrCorruptLayout, i, size))
		}
		if pos+size > dataStart {
			return formatError("サンプルヘッダー読み込み", pos, ErrTruncated)
		}
		raw := bytes.Clone(buf[pos : pos+size])
		e := decodeFSB4Entry(i, raw)
		if le.Uint32(raw[fsb4OffMode:])&fsound4MPEG != 0 {
			isMPEG = true
		}
		b.entries = append(b.entries, e)
		pos += size
	}
	b.shdrTail = bytes.Clone(buf[pos:dataStart])

	b.header.Codec = CodecPCM16
	if isMPEG {
		b.header.Codec = CodecMPEG
	}
	if b.header.Codec != spec.Codec {
		return formatError("コーデック確認", 20, fmt.Errorf("%w: %s (プロファイル %s は %s)", ErrProfileMismatch, b.header.Codec, spec.Name, spec.Codec))
	}

	cursor := dataStart
	b.payloads = make([][]byte, len(b.entries))
	for i, e := range b.entries {
		end := cursor + int64(e.CompressedSize)
		if end > dataEnd {
			return formatError("サンプルデータ読み込み", cursor, fmt.Errorf("%w: サンプル %d がデータ領域を超えています", ErrTruncated, i))
		}
		b.payloads[i] = bytes.Clone(buf[cursor:end])
		cursor = end
	}
	b.dataTail = bytes.Clone(buf[cursor:dataEnd])
	b.trailer = bytes.Clone(buf[dataEnd:])
	return nil
}

func decodeFSB4Entry(index int, raw []byte) SampleEntry {
	le := binary.LittleEndian
	name := raw[fsb4OffName : fsb4OffName+fsb4NameSize]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n]
	}
	mode := le.Uint32(raw[fsb4OffMode:])

	e := SampleEntry{
		Index:          index,
		Name:           string(name),
		Frames:         le.Uint32(raw[fsb4OffFrames:]),
		CompressedSize: int(le.Uint32(raw[fsb4OffCompressed:])),
		LoopStart:      le.Uint32(raw[fsb4OffLoopStart:]),
		LoopEnd:        le.Uint32(raw[fsb4OffLoopEnd:]),
		HasLoop:        mode&(fsound4LoopNormal|fsound4LoopBidi) != 0,
		SampleRate:     int(le.Uint32(raw[fsb4OffDefFreq:])),
		Channels:       int(le.Uint16(raw[fsb4OffNumChannels:])),
		raw:            raw,
	}
	if e.Channels == 0 {
		e.Channels = 1
		if mode&fsound4Stereo != 0 {
			e.Channels = 2
		}
	}
	return e
}

// rebuildFSB4Entry はサンプルヘッダーの該当フィールドだけを書き換えたエントリを返します
func rebuildFSB4Entry(old SampleEntry, size int, meta SampleMetadata) (SampleEntry, error) {
	if meta.Channels > math.MaxUint16 {
		return SampleEntry{}, fmt.Errorf("%w: チャンネル数 %d", ErrInvalidMetadata, meta.Channels)
	}
	if int64(size) > math.MaxUint32 {
		return SampleEntry{}, fmt.Errorf("%w: ペイロード長 %d", ErrOffsetOverflow, size)
	}

	le := binary.LittleEndian
	raw := bytes.Clone(old.raw)
	le.PutUint32(raw[fsb4OffFrames:], meta.Frames)
	le.PutUint32(raw[fsb4OffCompressed:], uint32(size))
	le.PutUint32(raw[fsb4OffDefFreq:], uint32(meta.SampleRate))
	le.PutUint16(raw[fsb4OffNumChannels:], uint16(meta.Channels))

	mode := le.Uint32(raw[fsb4OffMode:])
	if mode&(fsound4Mono|fsound4Stereo) != 0 {
		mode &^= fsound4Mono | fsound4Stereo
		if meta.Channels == 1 {
			mode |= fsound4Mono
		} else {
			mode |= fsound4Stereo
		}
	}
	if meta.HasLoop {
		if mode&(fsound4LoopNormal|fsound4LoopBidi) == 0 {
			mode = mode&^fsound4LoopOff | fsound4LoopNormal
		}
		le.PutUint32(raw[fsb4OffLoopStart:], meta.LoopStart)
		le.PutUint32(raw[fsb4OffLoopEnd:], meta.LoopEnd)
	} else {
		mode = mode&^(fsound4LoopNormal|fsound4LoopBidi) | fsound4LoopOff
		le.PutUint32(raw[fsb4OffLoopStart:], 0)
		end := meta.Frames
		if end > 0 {
			end--
		}
		le.PutUint32(raw[fsb4OffLoopEnd:], end)
	}
	le.PutUint32(raw[fsb4OffMode:], mode)

	e := decodeFSB4Entry(old.Index, raw)
	return e, nil
}

func (b *Bank) serializeFSB4() ([]byte, error) {
	le := binary.LittleEndian
	if b.header.DataSize > math.MaxUint32 || b.header.SampleHeadersSize > math.MaxUint32 {
		return nil, formatError("ヘッダー書き込み", 8, ErrOffsetOverflow)
	}

	out := make([]byte, 0, int64(b.header.Size())+b.header.DataSize+int64(len(b.trailer)))
	hdr := bytes.Clone(b.headerRaw)
	le.PutUint32(hdr[4:], uint32(len(b.entries)))
	le.PutUint32(hdr[8:], uint32(b.header.SampleHeadersSize))
	le.PutUint32(hdr[12:], uint32(b.header.DataSize))
	out = append(out, hdr...)

	for i, e := range b.entries {
		start := len(out)
		out = append(out, e.raw...)
		le.PutUint32(out[start+fsb4OffCompressed:], uint32(len(b.payloads[i])))
	}
	out = append(out, b.shdrTail...)

	for _, p := range b.payloads {
		out = append(out, p...)
	}
	out = append(out, b.dataTail...)
	out = append(out, b.trailer...)
	return out, nil
}
