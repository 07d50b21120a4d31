// Package dcx はFromSoftwareのDCX圧縮コンテナ（DFLT形式）を扱います。
package dcx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

var (
	// ErrBadMagic はDCXのマジックナンバーが一致しない場合のエラー
	ErrBadMagic = errors.New("DCXファイルではありません")

	// ErrTruncated はヘッダーまたは圧縮データが途中で切れている場合のエラー
	ErrTruncated = errors.New("DCXファイルが途中で切れています")

	// ErrUnsupportedFormat はDFLT以外の圧縮形式の場合のエラー
	ErrUnsupportedFormat = errors.New("対応していない圧縮形式です")

	// ErrSizeMismatch は展開後のサイズがヘッダーと一致しない場合のエラー
	ErrSizeMismatch = errors.New("展開後のサイズがヘッダーと一致しません")
)

var (
	magicDCX  = []byte("DCX\x00")
	magicDCS  = []byte("DCS\x00")
	magicDCP  = []byte("DCP\x00")
	magicDCA  = []byte("DCA\x00")
	formatDFL = []byte("DFLT")
)

const (
	defaultLevel = 9
	minHeader    = 0x4C
)

// Container は展開前のDCXヘッダーを保持します。
// 再圧縮時はサイズ欄だけを書き換えて同じヘッダーを使います。
type Container struct {
	header  []byte
	dcsOff  int
	level   int
	Version uint32
}

// IsDCX はデータがDCXコンテナで始まるかどうかを返します
func IsDCX(data []byte) bool {
	return bytes.HasPrefix(data, magicDCX)
}

// Decompress はDCXコンテナを展開し、中身とヘッダー情報を返します
func Decompress(data []byte) ([]byte, *Container, error) {
	if !IsDCX(data) {
		return nil, nil, ErrBadMagic
	}
	if len(data) < minHeader {
		return nil, nil, ErrTruncated
	}

	be := binary.BigEndian
	version := be.Uint32(data[4:])
	dcsOff := int(be.Uint32(data[8:]))
	dcpOff := int(be.Uint32(data[12:]))
	dataOff := int(be.Uint32(data[20:]))
	if dcsOff+12 > len(data) || dcpOff+16 > len(data) || dataOff > len(data) || dataOff < dcpOff+16 {
		return nil, nil, ErrTruncated
	}
	if !bytes.Equal(data[dcsOff:dcsOff+4], magicDCS) || !bytes.Equal(data[dcpOff:dcpOff+4], magicDCP) {
		return nil, nil, fmt.Errorf("%w: ブロック識別子が不正です", ErrBadMagic)
	}
	if format := data[dcpOff+4 : dcpOff+8]; !bytes.Equal(format, formatDFL) {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if !bytes.Equal(data[dataOff-8:dataOff-4], magicDCA) {
		return nil, nil, fmt.Errorf("%w: DCAブロックが見つかりません", ErrBadMagic)
	}

	rawSize := int64(be.Uint32(data[dcsOff+4:]))
	compSize := int(be.Uint32(data[dcsOff+8:]))
	if dataOff+compSize > len(data) {
		return nil, nil, ErrTruncated
	}

	zr, err := zlib.NewReader(bytes.NewReader(data[dataOff : dataOff+compSize]))
	if err != nil {
		return nil, nil, fmt.Errorf("zlibストリームを開けません: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, rawSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("zlibストリームの展開に失敗しました: %w", err)
	}
	if int64(len(out)) != rawSize {
		return nil, nil, fmt.Errorf("%w: %d != %d", ErrSizeMismatch, len(out), rawSize)
	}

	level := int(data[dcpOff+12])
	if level < 1 || level > 9 {
		level = defaultLevel
	}
	return out, &Container{
		header:  bytes.Clone(data[:dataOff]),
		dcsOff:  dcsOff,
		level:   level,
		Version: version,
	}, nil
}

// Compress は中身を元のヘッダー形式で再圧縮します
func (c *Container) Compress(payload []byte) ([]byte, error) {
	var zbuf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&zbuf, c.level)
	if err != nil {
		return nil, fmt.Errorf("zlibライターを作成できません: %w", err)
	}
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("zlib圧縮に失敗しました: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib圧縮に失敗しました: %w", err)
	}

	out := make([]byte, 0, len(c.header)+zbuf.Len())
	out = append(out, c.header...)
	be := binary.BigEndian
	be.PutUint32(out[c.dcsOff+4:], uint32(len(payload)))
	be.PutUint32(out[c.dcsOff+8:], uint32(zbuf.Len()))
	return append(out, zbuf.Bytes()...), nil
}

// Compress は既定のヘッダー（DS3/Sekiro形式のDFLT）で中身を圧縮します
func Compress(payload []byte) ([]byte, error) {
	return NewContainer().Compress(payload)
}

// NewContainer は既定のDFLTヘッダーを持つContainerを作成します
func NewContainer() *Container {
	be := binary.BigEndian
	h := make([]byte, 0, minHeader)
	h = append(h, magicDCX...)
	h = be.AppendUint32(h, 0x11000)
	h = be.AppendUint32(h, 0x18)
	h = be.AppendUint32(h, 0x24)
	h = be.AppendUint32(h, 0x44)
	h = be.AppendUint32(h, minHeader)
	h = append(h, magicDCS...)
	h = be.AppendUint32(h, 0) // 展開後サイズ
	h = be.AppendUint32(h, 0) // 圧縮後サイズ
	h = append(h, magicDCP...)
	h = append(h, formatDFL...)
	h = be.AppendUint32(h, 0x20)
	h = append(h, defaultLevel, 0, 0, 0)
	h = be.AppendUint32(h, 0)
	h = be.AppendUint32(h, 0)
	h = be.AppendUint32(h, 0)
	h = be.AppendUint32(h, 0x00010100)
	h = append(h, magicDCA...)
	h = be.AppendUint32(h, 8)
	return &Container{header: h, dcsOff: 0x18, level: defaultLevel, Version: 0x11000}
}
