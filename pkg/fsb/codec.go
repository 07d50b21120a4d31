package fsb

import (
	"bytes"
	"fmt"
)

// Codec はサンプルデータの圧縮形式です。値はFSB5ヘッダーのコーデック番号と同じです
type Codec uint32

// Codec定数
const (
	CodecNone   Codec = 0
	CodecPCM16  Codec = 2
	CodecMPEG   Codec = 11
	CodecVorbis Codec = 15
)

// String はコーデック名を返します
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecPCM16:
		return "pcm16"
	case CodecMPEG:
		return "mpeg"
	case CodecVorbis:
		return "vorbis"
	default:
		return fmt.Sprintf("codec(%d)", uint32(c))
	}
}

// Extension は抽出時の拡張子を返します
func (c Codec) Extension() string {
	switch c {
	case CodecMPEG:
		return ".mp3"
	case CodecVorbis:
		return ".fsbvorbis"
	case CodecPCM16:
		return ".pcm"
	default:
		return ".bin"
	}
}

var oggMagic = []byte("OggS")

// DetectCodec はペイロードの内容からコーデックを判定します。
// MPEGはフレーム同期ヘッダー（ID3v2タグは読み飛ばす）、VorbisはFSB形式の長さ付きパケット列で判定します。
// Oggコンテナは差し替えに使えないため CodecNone を返します。
func DetectCodec(payload []byte) Codec {
	if len(payload) == 0 || bytes.HasPrefix(payload, oggMagic) {
		return CodecNone
	}
	if _, ok := parseMPEGHeaderAt(payload, skipID3v2(payload)); ok {
		return CodecMPEG
	}
	if isVorbisPacketChain(payload) {
		return CodecVorbis
	}
	return CodecNone
}
