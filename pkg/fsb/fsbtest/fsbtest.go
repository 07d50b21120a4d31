// Package fsbtest はテスト用のFSB4/FSB5バンクをメモリ上に組み立てます。
// 不正なサンプル定義を渡した場合は panic します。
package fsbtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/shiroemons/go-fsbswap/pkg/crypto"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Sample はバンクに入れる1サンプルの定義です
type Sample struct {
	Name      string
	Payload   []byte
	Frames    uint32
	Channels  int
	Rate      int
	Loop      bool
	LoopStart uint32
	LoopEnd   uint32
	CRC       uint32
	Seek      []uint32
}

var (
	fsb5Frequencies = []int{4000, 8000, 11000, 11025, 16000, 22050, 24000, 32000, 44100, 48000, 96000, 192000}
	fsb5Channels    = []int{1, 2, 6, 8}
)

// VorbisPayload はFSB形式のVorbisパケット列（u16長さ＋本体）を作成します
func VorbisPayload(packets, size int, seed byte) []byte {
	var out []byte
	for i := range packets {
		out = binary.LittleEndian.AppendUint16(out, uint16(size))
		pkt := make([]byte, size)
		for j := range pkt {
			pkt[j] = seed + byte(i*size+j)
		}
		pkt[0] &^= 1 // 音声パケット
		out = append(out, pkt...)
	}
	return out
}

// MPEGFrame はMPEG1 Layer III 128kbps 44.1kHz のフレームを1つ作成します
func MPEGFrame(mono bool) []byte {
	mode := byte(0x40)
	if mono {
		mode = 0xC0
	}
	frame := bytes.Repeat([]byte{0x11}, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, mode})
	return frame
}

// MPEGPayload は frames 個のフレームを連結します
func MPEGPayload(frames int, mono bool) []byte {
	var out []byte
	for range frames {
		out = append(out, MPEGFrame(mono)...)
	}
	return out
}

// VorbisSamples はVorbisバンク用の既定のサンプルです
func VorbisSamples() []Sample {
	return []Sample{
		{Name: "s_bgm_title", Payload: VorbisPayload(3, 40, 0x10), Frames: 44100, Channels: 2, Rate: 44100, CRC: 0x11111111, Seek: []uint32{0, 1024}},
		{Name: "s_se_sword", Payload: VorbisPayload(2, 50, 0x20), Frames: 22050, Channels: 1, Rate: 48000, Loop: true, LoopStart: 10, LoopEnd: 20000, CRC: 0x22222222},
		{Name: "s_voice_01", Payload: VorbisPayload(4, 33, 0x30), Frames: 8000, Channels: 2, Rate: 32000, CRC: 0x33333333, Seek: []uint32{0}},
	}
}

// MPEGSamples はFSB4バンク用の既定のサンプルです
func MPEGSamples() []Sample {
	return []Sample{
		{Name: "bgm_firelink", Payload: MPEGPayload(3, false), Frames: 3 * 1152, Channels: 2, Rate: 44100},
		{Name: "se_bonfire", Payload: MPEGPayload(2, true), Frames: 2 * 1152, Channels: 1, Rate: 44100},
		{Name: "vo_solaire", Payload: MPEGPayload(4, false), Frames: 4 * 1152, Channels: 2, Rate: 44100},
	}
}

// FSB5 は名前テーブル付きの平文FSB5バンクを組み立てます
func FSB5(codec fsb.Codec, samples []Sample) []byte {
	le := binary.LittleEndian

	var data []byte
	offsets := make([]int, len(samples))
	for i, s := range samples {
		if rem := len(data) % 32; rem != 0 {
			data = append(data, make([]byte, 32-rem)...)
		}
		offsets[i] = len(data)
		data = append(data, s.Payload...)
	}

	var shdr []byte
	for i, s := range samples {
		type rawChunk struct {
			typ  uint32
			data []byte
		}
		var chunks []rawChunk
		if s.Loop {
			d := le.AppendUint32(nil, s.LoopStart)
			chunks = append(chunks, rawChunk{3, le.AppendUint32(d, s.LoopEnd)})
		}
		if codec == fsb.CodecVorbis {
			d := le.AppendUint32(nil, s.CRC)
			for _, v := range s.Seek {
				d = le.AppendUint32(d, v)
			}
			chunks = append(chunks, rawChunk{11, d})
		}

		freq := slices.Index(fsb5Frequencies, s.Rate)
		ch := slices.Index(fsb5Channels, s.Channels)
		if freq < 0 || ch < 0 {
			panic(fmt.Sprintf("fsbtest: 未対応の形式です: rate=%d channels=%d", s.Rate, s.Channels))
		}
		mode := uint64(freq)<<1 | uint64(ch)<<5 | uint64(offsets[i]/32)<<7 | uint64(s.Frames)<<34
		if len(chunks) > 0 {
			mode |= 1
		}
		shdr = le.AppendUint64(shdr, mode)
		for j, c := range chunks {
			h := uint32(len(c.data))<<1 | c.typ<<25
			if j+1 < len(chunks) {
				h |= 1
			}
			shdr = le.AppendUint32(shdr, h)
			shdr = append(shdr, c.data...)
		}
	}

	var names, strs []byte
	for _, s := range samples {
		names = le.AppendUint32(names, uint32(4*len(samples)+len(strs)))
		strs = append(strs, s.Name...)
		strs = append(strs, 0)
	}
	names = append(names, strs...)

	hdr := make([]byte, 60)
	copy(hdr, "FSB5")
	le.PutUint32(hdr[4:], 1)
	le.PutUint32(hdr[8:], uint32(len(samples)))
	le.PutUint32(hdr[12:], uint32(len(shdr)))
	le.PutUint32(hdr[16:], uint32(len(names)))
	le.PutUint32(hdr[20:], uint32(len(data)))
	le.PutUint32(hdr[24:], uint32(codec))

	out := append(hdr, shdr...)
	out = append(out, names...)
	return append(out, data...)
}

// FSB4 はMPEGのFSB4バンクを組み立てます
func FSB4(samples []Sample) []byte {
	le := binary.LittleEndian

	var shdr, data []byte
	for _, s := range samples {
		if len(s.Name) > 30 {
			panic(fmt.Sprintf("fsbtest: 名前が長すぎます: %q", s.Name))
		}
		e := make([]byte, 80)
		le.PutUint16(e, 80)
		copy(e[2:], s.Name)
		le.PutUint32(e[32:], s.Frames)
		le.PutUint32(e[36:], uint32(len(s.Payload)))
		le.PutUint32(e[40:], s.LoopStart)
		le.PutUint32(e[44:], s.LoopEnd)
		mode := uint32(0x40 | 0x200)
		if s.Channels == 1 {
			mode = 0x20 | 0x200
		}
		if s.Loop {
			mode |= 0x2
		} else {
			mode |= 0x1
		}
		le.PutUint32(e[48:], mode)
		le.PutUint32(e[52:], uint32(s.Rate))
		le.PutUint16(e[62:], uint16(s.Channels))
		shdr = append(shdr, e...)
		data = append(data, s.Payload...)
	}

	hdr := make([]byte, 48)
	copy(hdr, "FSB4")
	le.PutUint32(hdr[4:], uint32(len(samples)))
	le.PutUint32(hdr[8:], uint32(len(shdr)))
	le.PutUint32(hdr[12:], uint32(len(data)))
	le.PutUint32(hdr[16:], 0x00040000)
	le.PutUint32(hdr[20:], 0x00200000)

	out := append(hdr, shdr...)
	return append(out, data...)
}

// Encrypt は平文のFSB5バンクをプロファイルの暗号で暗号化します
func Encrypt(plain []byte, p fsb.Profile) ([]byte, error) {
	ctx, err := p.Encryption()
	if err != nil {
		return nil, err
	}
	if !ctx.Enabled() {
		return bytes.Clone(plain), nil
	}
	le := binary.LittleEndian
	out := bytes.Clone(plain)
	dataStart := 60 + int(le.Uint32(plain[12:])) + int(le.Uint32(plain[16:]))
	dataEnd := dataStart + int(le.Uint32(plain[20:]))
	copy(out[dataStart:dataEnd], crypto.EncryptPrefix(out[dataStart:dataEnd], ctx))
	head, err := crypto.Encrypt(out[:32], ctx)
	if err != nil {
		return nil, err
	}
	copy(out, head)
	return out, nil
}

// Bank は組み立てたバイト列を解析して返します
func Bank(data []byte, p fsb.Profile) *fsb.Bank {
	b, err := fsb.Parse(data, p)
	if err != nil {
		panic(fmt.Sprintf("fsbtest: %v", err))
	}
	return b
}
