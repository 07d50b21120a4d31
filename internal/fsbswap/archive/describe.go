package archive

import (
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/fileutil"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Describe はバンクのサンプル一覧を表示用に変換します。
// 名前はShift-JISの場合もUTF-8に変換します。
func Describe(bank *fsb.Bank) []models.EntryInfo {
	entries := bank.Entries()
	offsets := bank.Offsets()
	infos := make([]models.EntryInfo, len(entries))
	for i, e := range entries {
		name := e.DisplayName()
		if e.Name != "" {
			name = fileutil.DecodeName(e.Name)
		}
		infos[i] = models.EntryInfo{
			Index:          e.Index,
			Name:           name,
			Channels:       e.Channels,
			SampleRate:     e.SampleRate,
			Duration:       e.Duration(),
			CompressedSize: e.CompressedSize,
			PCMSize:        e.PCMSize(),
			Offset:         offsets[i],
			HasLoop:        e.HasLoop,
			LoopStart:      e.LoopStart,
			LoopEnd:        e.LoopEnd,
		}
	}
	return infos
}

// Summarize はバンク全体の情報を返します
func Summarize(path string, bank *fsb.Bank, fileSize int64, wrapped bool) models.BankInfo {
	h := bank.Header()
	return models.BankInfo{
		Path:        path,
		Profile:     bank.Profile(),
		Version:     h.Version,
		Codec:       h.Codec,
		Encrypted:   h.Encrypted,
		Cipher:      h.Cipher.String(),
		DCX:         wrapped,
		SampleCount: bank.Len(),
		HeaderSize:  h.Size(),
		DataSize:    h.DataSize,
		FileSize:    fileSize,
	}
}
