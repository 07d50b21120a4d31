package fsb

import "encoding/binary"

// MPEGバージョン（ヘッダーのビット値）
const (
	mpegVersion25 = 0
	mpegVersion2  = 2
	mpegVersion1  = 3
)

// Layer IIIのビットレート表（kbps）
var (
	mpeg1L3Bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mpeg2L3Bitrates = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

var mpegSampleRates = [4][3]int{
	mpegVersion25: {11025, 12000, 8000},
	mpegVersion2:  {22050, 24000, 16000},
	mpegVersion1:  {44100, 48000, 32000},
}

// MPEGFrameHeader はMPEG Audio Layer IIIのフレームヘッダーです
type MPEGFrameHeader struct {
	Version     int
	Bitrate     int // kbps
	SampleRate  int
	Padding     bool
	ChannelMode int
	FrameSize   int
}

// Channels はチャンネル数を返します
func (h MPEGFrameHeader) Channels() int {
	if h.ChannelMode == 3 {
		return 1
	}
	return 2
}

// SamplesPerFrame は1フレームあたりのPCMフレーム数を返します
func (h MPEGFrameHeader) SamplesPerFrame() int {
	if h.Version == mpegVersion1 {
		return 1152
	}
	return 576
}

// ParseMPEGFrameHeader は4バイトのフレームヘッダーを解析します。Layer III以外は受け付けません
func ParseMPEGFrameHeader(header uint32) (MPEGFrameHeader, bool) {
	if header>>21 != 0x7FF {
		return MPEGFrameHeader{}, false
	}
	version := int(header>>19) & 0x3
	layer := int(header>>17) & 0x3
	bitrateIndex := int(header>>12) & 0xF
	rateIndex := int(header>>10) & 0x3
	padding := (header>>9)&0x1 == 1
	channelMode := int(header>>6) & 0x3

	// layer 1 = Layer III
	if version == 1 || layer != 1 || bitrateIndex == 0 || bitrateIndex == 15 || rateIndex == 3 {
		return MPEGFrameHeader{}, false
	}

	h := MPEGFrameHeader{
		Version:     version,
		SampleRate:  mpegSampleRates[version][rateIndex],
		Padding:     padding,
		ChannelMode: channelMode,
	}
	coefficient := 72
	if version == mpegVersion1 {
		h.Bitrate = mpeg1L3Bitrates[bitrateIndex]
		coefficient = 144
	} else {
		h.Bitrate = mpeg2L3Bitrates[bitrateIndex]
	}
	h.FrameSize = coefficient * h.Bitrate * 1000 / h.SampleRate
	if padding {
		h.FrameSize++
	}
	return h, true
}

func parseMPEGHeaderAt(data []byte, pos int) (MPEGFrameHeader, bool) {
	if pos < 0 || pos+4 > len(data) {
		return MPEGFrameHeader{}, false
	}
	return ParseMPEGFrameHeader(binary.BigEndian.Uint32(data[pos:]))
}

// skipID3v2 はID3v2タグの長さを返します。タグがない場合は0です
func skipID3v2(data []byte) int {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return 0
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	total := 10 + size
	if data[5]&0x10 != 0 {
		total += 10
	}
	if total > len(data) {
		return len(data)
	}
	return total
}

// findMPEGSync は pos 以降で最初の有効なフレームヘッダーの位置を返します
func findMPEGSync(data []byte, pos int) int {
	for i := pos; i+4 <= len(data); i++ {
		if data[i] != 0xFF || data[i+1]&0xE0 != 0xE0 {
			continue
		}
		if _, ok := parseMPEGHeaderAt(data, i); ok {
			return i
		}
	}
	return -1
}

// MPEGInfo はMPEGストリームの概要です
type MPEGInfo struct {
	SampleRate int
	Channels   int
	Bitrate    int
	FrameCount int
	Frames     uint32 // PCMフレーム数
}

// ProbeMPEG はストリーム先頭のフレームから形式を読み取り、連続するフレーム数を数えます
func ProbeMPEG(data []byte) (MPEGInfo, bool) {
	pos := findMPEGSync(data, skipID3v2(data))
	if pos < 0 {
		return MPEGInfo{}, false
	}
	first, _ := parseMPEGHeaderAt(data, pos)
	info := MPEGInfo{
		SampleRate: first.SampleRate,
		Channels:   first.Channels(),
		Bitrate:    first.Bitrate,
	}
	for {
		h, ok := parseMPEGHeaderAt(data, pos)
		if !ok {
			next := findMPEGSync(data, pos+1)
			if next < 0 {
				break
			}
			pos = next
			continue
		}
		if pos+h.FrameSize > len(data) {
			break
		}
		info.FrameCount++
		info.Frames += uint32(h.SamplesPerFrame())
		pos += h.FrameSize
	}
	return info, true
}

// ExtractMPEGFrames はペイロードからMPEGフレームだけを取り出して連結します。
// FSB4のペイロードにはフレーム間に詰め物が入ることがあるため、再同期しながら読み進めます。
// フレームが見つからない場合は入力をそのまま返します。
func ExtractMPEGFrames(data []byte) []byte {
	var out []byte
	pos := 0
	for pos+4 <= len(data) {
		h, ok := parseMPEGHeaderAt(data, pos)
		if !ok {
			next := findMPEGSync(data, pos+1)
			if next < 0 {
				break
			}
			pos = next
			continue
		}
		if pos+h.FrameSize > len(data) {
			break
		}
		out = append(out, data[pos:pos+h.FrameSize]...)
		pos += h.FrameSize
	}
	if len(out) == 0 {
		return append([]byte(nil), data...)
	}
	return out
}
