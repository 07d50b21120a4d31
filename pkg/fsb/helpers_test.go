package fsb

import (
	"bytes"
	"encoding/binary"
	"math"
	"slices"
	"testing"

	"github.com/shiroemons/go-fsbswap/pkg/crypto"
)

// testSample はテスト用バンクを組み立てるためのサンプル定義
type testSample struct {
	name      string
	payload   []byte
	frames    uint32
	channels  int
	rate      int
	loop      bool
	loopStart uint32
	loopEnd   uint32
	crc       uint32
	seek      []uint32
}

// vorbisPayload はFSB形式のVorbisパケット列を作成します
func vorbisPayload(packets, size int, seed byte) []byte {
	var out []byte
	for i := range packets {
		out = binary.LittleEndian.AppendUint16(out, uint16(size))
		pkt := make([]byte, size)
		for j := range pkt {
			pkt[j] = seed + byte(i*size+j)
		}
		pkt[0] &^= 1
		out = append(out, pkt...)
	}
	return out
}

// mpegFrame はMPEG1 Layer III 128kbps 44.1kHz のフレームを1つ作成します（417バイト）
func mpegFrame(mono bool) []byte {
	mode := byte(0x40)
	if mono {
		mode = 0xC0
	}
	frame := bytes.Repeat([]byte{0x11}, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, mode})
	return frame
}

func mpegPayload(frames int, mono bool) []byte {
	var out []byte
	for range frames {
		out = append(out, mpegFrame(mono)...)
	}
	return out
}

func defaultVorbisSamples() []testSample {
	return []testSample{
		{name: "s_bgm_title", payload: vorbisPayload(3, 40, 0x10), frames: 44100, channels: 2, rate: 44100, crc: 0x11111111, seek: []uint32{0, 1024}},
		{name: "s_se_sword", payload: vorbisPayload(2, 50, 0x20), frames: 22050, channels: 1, rate: 48000, loop: true, loopStart: 10, loopEnd: 20000, crc: 0x22222222},
		{name: "s_voice_01", payload: vorbisPayload(4, 33, 0x30), frames: 8000, channels: 2, rate: 32000, crc: 0x33333333, seek: []uint32{0}},
	}
}

func defaultMPEGSamples() []testSample {
	return []testSample{
		{name: "bgm_firelink", payload: mpegPayload(3, false), frames: 3 * 1152, channels: 2, rate: 44100},
		{name: "se_bonfire", payload: mpegPayload(2, true), frames: 2 * 1152, channels: 1, rate: 44100},
		{name: "vo_solaire", payload: mpegPayload(4, false), frames: 4 * 1152, channels: 2, rate: 44100},
	}
}

// buildFSB5 はFSB5形式の平文バンクを組み立てます
func buildFSB5(t *testing.T, codec Codec, samples []testSample, withNames bool, trailer []byte) []byte {
	t.Helper()
	le := binary.LittleEndian

	var data []byte
	offsets := make([]int, len(samples))
	for i, s := range samples {
		if rem := len(data) % fsb5DataAlign; i > 0 && rem != 0 {
			data = append(data, make([]byte, fsb5DataAlign-rem)...)
		}
		offsets[i] = len(data)
		data = append(data, s.payload...)
	}

	var shdr []byte
	for i, s := range samples {
		type rawChunk struct {
			typ  uint32
			data []byte
		}
		var chunks []rawChunk
		if s.loop {
			d := le.AppendUint32(nil, s.loopStart)
			d = le.AppendUint32(d, s.loopEnd)
			chunks = append(chunks, rawChunk{chunkLoop, d})
		}
		if codec == CodecVorbis {
			d := le.AppendUint32(nil, s.crc)
			for _, v := range s.seek {
				d = le.AppendUint32(d, v)
			}
			chunks = append(chunks, rawChunk{chunkVorbis, d})
		}

		freq := slices.Index(fsb5Frequencies[:], s.rate)
		ch := slices.Index(fsb5Channels[:], s.channels)
		if freq < 0 || ch < 0 {
			t.Fatalf("テスト用サンプルの形式が不正です: rate=%d channels=%d", s.rate, s.channels)
		}
		mode := uint64(freq)<<fsb5FreqShift | uint64(ch)<<fsb5ChannelShift |
			uint64(offsets[i]/fsb5DataAlign)<<fsb5OffsetShift | uint64(s.frames)<<fsb5FramesShift
		if len(chunks) > 0 {
			mode |= fsb5ModeHasChunks
		}
		shdr = le.AppendUint64(shdr, mode)
		for j, c := range chunks {
			h := uint32(len(c.data))<<1 | c.typ<<fsb5ChunkTypeShift
			if j+1 < len(chunks) {
				h |= fsb5ChunkMoreChunks
			}
			shdr = le.AppendUint32(shdr, h)
			shdr = append(shdr, c.data...)
		}
	}

	var names []byte
	if withNames {
		var strs []byte
		base := 4 * len(samples)
		for _, s := range samples {
			names = le.AppendUint32(names, uint32(base+len(strs)))
			strs = append(strs, s.name...)
			strs = append(strs, 0)
		}
		names = append(names, strs...)
	}

	hdr := make([]byte, fsb5HeaderSize)
	copy(hdr, "FSB5")
	le.PutUint32(hdr[4:], 1)
	le.PutUint32(hdr[8:], uint32(len(samples)))
	le.PutUint32(hdr[12:], uint32(len(shdr)))
	le.PutUint32(hdr[16:], uint32(len(names)))
	le.PutUint32(hdr[20:], uint32(len(data)))
	le.PutUint32(hdr[24:], uint32(codec))
	for i := 28; i < fsb5HeaderSize; i++ {
		hdr[i] = byte(i * 7)
	}

	out := append(hdr, shdr...)
	out = append(out, names...)
	out = append(out, data...)
	return append(out, trailer...)
}

// buildFSB4 はFSB4形式のバンクを組み立てます
func buildFSB4(t *testing.T, mpeg bool, samples []testSample, trailer []byte) []byte {
	t.Helper()
	le := binary.LittleEndian

	var shdr, data []byte
	for _, s := range samples {
		e := make([]byte, fsb4SampleHeaderSize)
		le.PutUint16(e, fsb4SampleHeaderSize)
		if len(s.name) > fsb4NameSize {
			t.Fatalf("名前が長すぎます: %q", s.name)
		}
		copy(e[fsb4OffName:], s.name)
		le.PutUint32(e[fsb4OffFrames:], s.frames)
		le.PutUint32(e[fsb4OffCompressed:], uint32(len(s.payload)))
		le.PutUint32(e[fsb4OffLoopStart:], s.loopStart)
		le.PutUint32(e[fsb4OffLoopEnd:], s.loopEnd)
		mode := uint32(fsound4Stereo)
		if s.channels == 1 {
			mode = fsound4Mono
		}
		if s.loop {
			mode |= fsound4LoopNormal
		} else {
			mode |= 0x1
		}
		if mpeg {
			mode |= fsound4MPEG
		}
		le.PutUint32(e[fsb4OffMode:], mode)
		le.PutUint32(e[fsb4OffDefFreq:], uint32(s.rate))
		le.PutUint16(e[56:], 255)
		le.PutUint16(e[58:], 128)
		le.PutUint16(e[60:], 128)
		le.PutUint16(e[fsb4OffNumChannels:], uint16(s.channels))
		le.PutUint32(e[64:], math.Float32bits(1.0))
		le.PutUint32(e[68:], math.Float32bits(10000.0))
		shdr = append(shdr, e...)
		data = append(data, s.payload...)
	}

	hdr := make([]byte, fsb4HeaderSize)
	copy(hdr, "FSB4")
	le.PutUint32(hdr[4:], uint32(len(samples)))
	le.PutUint32(hdr[8:], uint32(len(shdr)))
	le.PutUint32(hdr[12:], uint32(len(data)))
	le.PutUint32(hdr[16:], 0x00040000)
	if mpeg {
		le.PutUint32(hdr[20:], fsb4FlagMPEG)
	}
	for i := 24; i < fsb4HeaderSize; i++ {
		hdr[i] = byte(i * 5)
	}

	out := append(hdr, shdr...)
	out = append(out, data...)
	return append(out, trailer...)
}

// encryptFSB5 は平文のFSB5バンクを指定したコンテキストで暗号化します
func encryptFSB5(t *testing.T, plain []byte, ctx *crypto.Context) []byte {
	t.Helper()
	le := binary.LittleEndian
	out := bytes.Clone(plain)
	dataStart := fsb5HeaderSize + int(le.Uint32(plain[12:])) + int(le.Uint32(plain[16:]))
	dataEnd := dataStart + int(le.Uint32(plain[20:]))
	copy(out[dataStart:dataEnd], crypto.EncryptPrefix(out[dataStart:dataEnd], ctx))
	head, err := crypto.Encrypt(out[:headerCipherSize], ctx)
	if err != nil {
		t.Fatalf("crypto.Encrypt() error = %v", err)
	}
	copy(out, head)
	return out
}

func profileContext(t *testing.T, p Profile) *crypto.Context {
	t.Helper()
	ctx, err := p.Encryption()
	if err != nil {
		t.Fatalf("Encryption() error = %v", err)
	}
	return ctx
}

func mustParse(t *testing.T, data []byte, p Profile) *Bank {
	t.Helper()
	b, err := Parse(data, p)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return b
}
