package fsb

import (
	"encoding/binary"
	"iter"
)

// VorbisPackets はFSB形式のVorbisペイロード（u16長さ付きパケット列）を順に返します。
// 長さ0のパケットか、データの終わりで停止します。
func VorbisPackets(data []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		pos := 0
		for pos+2 <= len(data) {
			size := int(binary.LittleEndian.Uint16(data[pos:]))
			pos += 2
			if size == 0 || pos+size > len(data) {
				return
			}
			if !yield(data[pos : pos+size]) {
				return
			}
			pos += size
		}
	}
}

// isVorbisPacketChain はペイロードがFSB形式のVorbisパケット列かどうかを判定します。
// 各パケットは音声パケット（先頭ビットが0）で、残りはゼロ埋めでなければなりません。
func isVorbisPacketChain(data []byte) bool {
	pos, packets := 0, 0
	for pos+2 <= len(data) {
		size := int(binary.LittleEndian.Uint16(data[pos:]))
		if size == 0 {
			break
		}
		if pos+2+size > len(data) {
			return false
		}
		if data[pos+2]&1 != 0 {
			return false
		}
		pos += 2 + size
		packets++
	}
	for _, c := range data[pos:] {
		if c != 0 {
			return false
		}
	}
	return packets > 0
}
