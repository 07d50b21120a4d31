package fsb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// FSB5 形式の定数
const (
	fsb5HeaderSize = 60
	fsb5DataAlign  = 32

	fsb5ModeHasChunks   = 0x1
	fsb5FreqShift       = 1
	fsb5FreqMask        = 0xF
	fsb5ChannelShift    = 5
	fsb5ChannelMask     = 0x3
	fsb5OffsetShift     = 7
	fsb5OffsetMask      = 0x7FFFFFF
	fsb5FramesShift     = 34
	fsb5FramesMask      = 0x3FFFFFFF
	fsb5ChunkSizeMask   = 0xFFFFFF
	fsb5ChunkTypeShift  = 25
	fsb5ChunkMoreChunks = 0x1
)

// チャンクの種類
const (
	chunkChannels  = 1
	chunkFrequency = 2
	chunkLoop      = 3
	chunkVorbis    = 11
)

var fsb5Frequencies = [...]int{4000, 8000, 11000, 11025, 16000, 22050, 24000, 32000, 44100, 48000, 96000, 192000}

var fsb5Channels = [...]int{1, 2, 6, 8}

// chunk はFSB5サンプルヘッダーに続く拡張チャンクです
type chunk struct {
	typ  uint32
	data []byte
}

func parseFSB5(buf []byte, b *Bank, spec ProfileSpec, decryptData func([]byte)) error {
	le := binary.LittleEndian
	if len(buf) < fsb5HeaderSize {
		return formatError("ヘッダー読み込み", 0, ErrTruncated)
	}

	numSamples := int64(le.Uint32(buf[8:]))
	shs := int64(le.Uint32(buf[12:]))
	nts := int64(le.Uint32(buf[16:]))
	dataSize := int64(le.Uint32(buf[20:]))
	codec := Codec(le.Uint32(buf[24:]))

	if codec != spec.Codec {
		return formatError("コーデック確認", 24, fmt.Errorf("%w: %s (プロファイル %s は %s)", ErrProfileMismatch, codec, spec.Name, spec.Codec))
	}

	shdrEnd := fsb5HeaderSize + shs
	dataStart := shdrEnd + nts
	dataEnd := dataStart + dataSize
	if dataEnd > int64(len(buf)) {
		return formatError("ヘッダー読み込み", 20, fmt.Errorf("%w: データ終端 %d > ファイルサイズ %d", ErrTruncated, dataEnd, len(buf)))
	}
	if numSamples*8 > shs {
		return formatError("ヘッダー読み込み", 8, fmt.Errorf("%w: サンプル数 %d に対してサンプルヘッダー領域が %d バイトしかありません", ErrTruncated, numSamples, shs))
	}
	if decryptData != nil {
		decryptData(buf[dataStart:dataEnd])
	}

	b.header = Header{Version: FSB5, FixedHeaderSize: fsb5HeaderSize, Codec: codec}
	b.headerRaw = bytes.Clone(buf[:fsb5HeaderSize])

	pos := int64(fsb5HeaderSize)
	offsets := make([]int64, numSamples)
	b.entries = make([]SampleEntry, 0, numSamples)
	for i := range int(numSamples) {
		start := pos
		if pos+8 > shdrEnd {
			return formatError("サンプルヘッダー読み込み", pos, ErrTruncated)
		}
		mode := le.Uint64(buf[pos:])
		pos += 8

		var chunks []chunk
		if mode&fsb5ModeHasChunks != 0 {
			for {
				if pos+4 > shdrEnd {
					return formatError("チャンク読み込み", pos, ErrTruncated)
				}
				h := le.Uint32(buf[pos:])
				pos += 4
				size := int64((h >> 1) & fsb5ChunkSizeMask)
				if pos+size > shdrEnd {
					return formatError("チャンク読み込み", pos, ErrTruncated)
				}
				chunks = append(chunks, chunk{typ: h >> fsb5ChunkTypeShift, data: bytes.Clone(buf[pos : pos+size])})
				pos += size
				if h&fsb5ChunkMoreChunks == 0 {
					break
				}
			}
		}

		e, err := decodeFSB5Entry(i, mode, chunks)
		if err != nil {
			return formatError("チャンク読み込み", start, err)
		}
		e.raw = bytes.Clone(buf[start:pos])
		offsets[i] = int64((mode>>fsb5OffsetShift)&fsb5OffsetMask) * fsb5DataAlign
		b.entries = append(b.entries, e)
	}
	b.shdrTail = bytes.Clone(buf[pos:shdrEnd])

	b.nameTable = bytes.Clone(buf[shdrEnd:dataStart])
	if err := readFSB5Names(b.nameTable, b.entries); err != nil {
		return formatError("名前テーブル読み込み", shdrEnd, err)
	}

	b.payloads = make([][]byte, len(b.entries))
	var last int64
	for i, off := range offsets {
		switch {
		case i == 0 && off != 0:
			return formatError("サンプルデータ読み込み", dataStart, fmt.Errorf("%w: 先頭サンプルのオフセットが %d です", ErrCorruptLayout, off))
		case off < last:
			return formatError("サンプルデータ読み込み", dataStart+off, fmt.Errorf("%w: サンプル %d のオフセットが前のサンプルより小さい", ErrCorruptLayout, i))
		case off > dataSize:
			return formatError("サンプルデータ読み込み", dataStart+off, fmt.Errorf("%w: サンプル %d のオフセットがデータ領域を超えています", ErrTruncated, i))
		}
		last = off
	}
	for i, off := range offsets {
		end := dataSize
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		b.payloads[i] = bytes.Clone(buf[dataStart+off : dataStart+end])
		b.entries[i].CompressedSize = len(b.payloads[i])
	}
	if len(offsets) == 0 {
		b.dataTail = bytes.Clone(buf[dataStart:dataEnd])
	}
	b.trailer = bytes.Clone(buf[dataEnd:])
	return nil
}

func decodeFSB5Entry(index int, mode uint64, chunks []chunk) (SampleEntry, error) {
	le := binary.LittleEndian
	e := SampleEntry{
		Index:    index,
		Frames:   uint32((mode >> fsb5FramesShift) & fsb5FramesMask),
		Channels: fsb5Channels[(mode>>fsb5ChannelShift)&fsb5ChannelMask],
		chunks:   chunks,
	}
	if idx := int((mode >> fsb5FreqShift) & fsb5FreqMask); idx < len(fsb5Frequencies) {
		e.SampleRate = fsb5Frequencies[idx]
	}

	for _, c := range chunks {
		switch c.typ {
		case chunkChannels:
			if len(c.data) < 1 {
				return SampleEntry{}, fmt.Errorf("%w: チャンネルチャンクが短すぎます", ErrCorruptLayout)
			}
			e.Channels = int(c.data[0])
		case chunkFrequency:
			if len(c.data) < 4 {
				return SampleEntry{}, fmt.Errorf("%w: 周波数チャンクが短すぎます", ErrCorruptLayout)
			}
			e.SampleRate = int(le.Uint32(c.data))
		case chunkLoop:
			if len(c.data) < 8 {
				return SampleEntry{}, fmt.Errorf("%w: ループチャンクが短すぎます", ErrCorruptLayout)
			}
			e.HasLoop = true
			e.LoopStart = le.Uint32(c.data)
			e.LoopEnd = le.Uint32(c.data[4:])
		case chunkVorbis:
			if len(c.data) < 4 {
				return SampleEntry{}, fmt.Errorf("%w: Vorbisチャンクが短すぎます", ErrCorruptLayout)
			}
			e.VorbisCRC = le.Uint32(c.data)
			n := (len(c.data) - 4) / 4
			e.SeekTable = make([]uint32, n)
			for j := range n {
				e.SeekTable[j] = le.Uint32(c.data[4+j*4:])
			}
		}
	}
	return e, nil
}

// readFSB5Names は名前テーブルからサンプル名を読み込みます。
// 先頭にサンプル数分のu32オフセット（テーブル先頭からの相対位置）が並び、その後にNUL終端の名前が続きます。
func readFSB5Names(table []byte, entries []SampleEntry) error {
	if len(table) == 0 {
		return nil
	}
	le := binary.LittleEndian
	n := len(entries)
	if len(table) < n*4 {
		return fmt.Errorf("%w: オフセット表が %d バイトしかありません", ErrCorruptNameTable, len(table))
	}
	prev := -1
	for i := range n {
		off := int(le.Uint32(table[i*4:]))
		if off <= prev {
			return fmt.Errorf("%w: サンプル %d のオフセットが単調増加していません", ErrCorruptNameTable, i)
		}
		if off < n*4 || off >= len(table) {
			return fmt.Errorf("%w: サンプル %d のオフセット %d が範囲外です", ErrCorruptNameTable, i, off)
		}
		end := bytes.IndexByte(table[off:], 0)
		if end < 0 {
			return fmt.Errorf("%w: サンプル %d の名前が終端されていません", ErrCorruptNameTable, i)
		}
		entries[i].Name = string(table[off : off+end])
		prev = off
	}
	return nil
}

// rebuildFSB5Entry はモード値とチャンクを作り直したエントリを返します。
// 認識できないチャンクは元の順序のまま残します。
func rebuildFSB5Entry(old SampleEntry, size int, meta SampleMetadata, codec Codec) (SampleEntry, error) {
	if uint64(meta.Frames) > fsb5FramesMask {
		return SampleEntry{}, fmt.Errorf("%w: フレーム数 %d", ErrInvalidMetadata, meta.Frames)
	}
	if meta.Channels > math.MaxUint8 {
		return SampleEntry{}, fmt.Errorf("%w: チャンネル数 %d", ErrInvalidMetadata, meta.Channels)
	}
	if int64(size) > math.MaxUint32 {
		return SampleEntry{}, fmt.Errorf("%w: ペイロード長 %d", ErrOffsetOverflow, size)
	}

	le := binary.LittleEndian
	freqIndex := slices.Index(fsb5Frequencies[:], meta.SampleRate)
	chanIndex := slices.Index(fsb5Channels[:], meta.Channels)

	wanted := map[uint32]chunk{}
	if chanIndex < 0 {
		wanted[chunkChannels] = chunk{typ: chunkChannels, data: []byte{byte(meta.Channels)}}
	}
	if freqIndex < 0 {
		data := make([]byte, 4)
		le.PutUint32(data, uint32(meta.SampleRate))
		wanted[chunkFrequency] = chunk{typ: chunkFrequency, data: data}
	}
	if meta.HasLoop {
		data := make([]byte, 8)
		le.PutUint32(data, meta.LoopStart)
		le.PutUint32(data[4:], meta.LoopEnd)
		wanted[chunkLoop] = chunk{typ: chunkLoop, data: data}
	}
	if codec == CodecVorbis {
		data := make([]byte, 4+4*len(meta.SeekTable))
		le.PutUint32(data, meta.VorbisCRC)
		for i, v := range meta.SeekTable {
			le.PutUint32(data[4+i*4:], v)
		}
		wanted[chunkVorbis] = chunk{typ: chunkVorbis, data: data}
	}

	var chunks []chunk
	for _, c := range old.chunks {
		switch c.typ {
		case chunkChannels, chunkFrequency, chunkLoop, chunkVorbis:
			if w, ok := wanted[c.typ]; ok {
				chunks = append(chunks, w)
				delete(wanted, c.typ)
			}
		default:
			chunks = append(chunks, c)
		}
	}
	for _, typ := range []uint32{chunkChannels, chunkFrequency, chunkLoop, chunkVorbis} {
		if w, ok := wanted[typ]; ok {
			chunks = append(chunks, w)
		}
	}

	var mode uint64
	if len(chunks) > 0 {
		mode |= fsb5ModeHasChunks
	}
	if freqIndex >= 0 {
		mode |= uint64(freqIndex) << fsb5FreqShift
	} else {
		// 周波数チャンクが優先されるため、モード値には近い値を入れておく
		mode |= uint64(slices.Index(fsb5Frequencies[:], 44100)) << fsb5FreqShift
	}
	if chanIndex >= 0 {
		mode |= uint64(chanIndex) << fsb5ChannelShift
	}
	mode |= uint64(meta.Frames) << fsb5FramesShift

	raw := binary.LittleEndian.AppendUint64(nil, mode)
	for i, c := range chunks {
		if len(c.data) > fsb5ChunkSizeMask {
			return SampleEntry{}, fmt.Errorf("%w: チャンク長 %d", ErrOffsetOverflow, len(c.data))
		}
		h := uint32(len(c.data))<<1 | c.typ<<fsb5ChunkTypeShift
		if i+1 < len(chunks) {
			h |= fsb5ChunkMoreChunks
		}
		raw = le.AppendUint32(raw, h)
		raw = append(raw, c.data...)
	}

	e, err := decodeFSB5Entry(old.Index, mode, chunks)
	if err != nil {
		return SampleEntry{}, err
	}
	e.Name = old.Name
	e.CompressedSize = size
	e.raw = raw
	return e, nil
}

func (b *Bank) serializeFSB5() ([]byte, error) {
	le := binary.LittleEndian
	if b.header.DataSize > math.MaxUint32 || b.header.SampleHeadersSize > math.MaxUint32 {
		return nil, formatError("ヘッダー書き込み", 12, ErrOffsetOverflow)
	}

	out := make([]byte, 0, int64(b.header.Size())+b.header.DataSize+int64(len(b.trailer)))
	hdr := bytes.Clone(b.headerRaw)
	le.PutUint32(hdr[8:], uint32(len(b.entries)))
	le.PutUint32(hdr[12:], uint32(b.header.SampleHeadersSize))
	le.PutUint32(hdr[16:], uint32(len(b.nameTable)))
	le.PutUint32(hdr[20:], uint32(b.header.DataSize))
	out = append(out, hdr...)

	offsets := b.Offsets()
	for i, e := range b.entries {
		off := offsets[i]
		if off%fsb5DataAlign != 0 {
			return nil, formatError("サンプルヘッダー書き込み", int64(len(out)), fmt.Errorf("%w: サンプル %d のオフセット %d が32バイト境界にありません", ErrCorruptLayout, i, off))
		}
		if off/fsb5DataAlign > fsb5OffsetMask {
			return nil, formatError("サンプルヘッダー書き込み", int64(len(out)), ErrOffsetOverflow)
		}
		start := len(out)
		out = append(out, e.raw...)
		mode := le.Uint64(out[start:])
		mode = mode&^(fsb5OffsetMask<<fsb5OffsetShift) | uint64(off/fsb5DataAlign)<<fsb5OffsetShift
		le.PutUint64(out[start:], mode)
	}
	out = append(out, b.shdrTail...)
	out = append(out, b.nameTable...)

	for _, p := range b.payloads {
		out = append(out, p...)
	}
	out = append(out, b.dataTail...)
	out = append(out, b.trailer...)
	return out, nil
}
