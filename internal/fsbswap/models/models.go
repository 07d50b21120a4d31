// Package models はfsbswapコマンドで使用するデータモデルを定義します
package models

import (
	"time"

	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Target は変換後のPCMに求める形式です
type Target struct {
	SampleRate int
	Channels   int
}

// EncodeOptions はエンコーダーに渡す設定です
type EncodeOptions struct {
	Codec   fsb.Codec
	Quality int // Vorbis品質（1〜100）
	Bitrate int // MP3ビットレート（kbps）
}

// Encoded はエンコーダーの出力です
type Encoded struct {
	Payload []byte
	Meta    fsb.SampleMetadata
}

// EntryInfo は一覧表示用のサンプル情報です
type EntryInfo struct {
	Index          int
	Name           string
	Channels       int
	SampleRate     int
	Duration       time.Duration
	CompressedSize int
	PCMSize        int64
	Offset         int64
	HasLoop        bool
	LoopStart      uint32
	LoopEnd        uint32
}

// BankInfo はバンク全体の情報です
type BankInfo struct {
	Path        string
	Profile     fsb.Profile
	Version     fsb.Version
	Codec       fsb.Codec
	Encrypted   bool
	Cipher      string
	DCX         bool
	SampleCount int
	HeaderSize  int
	DataSize    int64
	FileSize    int64
}

// ReplaceRequest は差し替え指示の1行です
type ReplaceRequest struct {
	Target    string // インデックスまたはサンプル名
	AudioPath string
	Line      int
}

// ReplaceResult は差し替え1件の結果です
type ReplaceResult struct {
	Index   int
	Name    string
	OldSize int
	NewSize int
}

// ExtractedFile は抽出したファイル1件です
type ExtractedFile struct {
	Index int
	Path  string
	Size  int
}
