package fsb

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/shiroemons/go-fsbswap/pkg/crypto"
)

// Parse はバンクのバイト列を解析します。
// 暗号化プロファイルでは方式を判別し、その方式の範囲を復号してから解析します。
// 失敗した場合は Bank を返しません。入力のスライスは変更しません。
func Parse(data []byte, p Profile) (*Bank, error) {
	spec, err := p.Spec()
	if err != nil {
		return nil, err
	}

	magic := spec.Version.magic()
	schemes := spec.Schemes()
	var (
		buf    []byte
		scheme Scheme
	)
	for _, s := range schemes {
		candidate, err := openScheme(data, s)
		if err != nil {
			return nil, err
		}
		if len(candidate) < len(magic) {
			return nil, formatError("マジックナンバー確認", 0, ErrTruncated)
		}
		if bytes.Equal(candidate[:len(magic)], magic) {
			buf, scheme = candidate, s
			break
		}
	}
	if buf == nil {
		if schemes[0].Enabled() {
			// どの方式で復号してもマジックナンバーが現れないのは鍵が一致しない場合
			return nil, crypto.NewError("ヘッダー復号", crypto.ErrInvalidCiphertext)
		}
		return nil, formatError("マジックナンバー確認", 0, fmt.Errorf("%w: %q (期待値 %q)", ErrBadMagic, data[:len(magic)], magic))
	}

	b := &Bank{profile: p, scheme: scheme}
	var decryptData func(region []byte)
	if scheme.Enabled() && scheme.Span&SpanPayload != 0 {
		ctx, err := cipherContext(scheme.Cipher)
		if err != nil {
			return nil, err
		}
		decryptData = func(region []byte) {
			copy(region, crypto.DecryptPrefix(region, ctx))
		}
	}

	switch spec.Version {
	case FSB4:
		err = parseFSB4(buf, b, spec, decryptData)
	case FSB5:
		err = parseFSB5(buf, b, spec, decryptData)
	default:
		err = ErrUnknownProfile
	}
	if err != nil {
		return nil, err
	}

	if err := checkUniqueNames(b.entries); err != nil {
		return nil, err
	}
	b.header.Encrypted = scheme.Enabled()
	if scheme.Enabled() {
		b.header.Cipher = scheme.Cipher
	}
	b.refreshHeader()
	return b, nil
}

// openScheme は方式 s の範囲のうちヘッダー判別に必要な部分を復号したコピーを返します
func openScheme(data []byte, s Scheme) ([]byte, error) {
	buf := bytes.Clone(data)
	if !s.Enabled() {
		return buf, nil
	}
	ctx, err := cipherContext(s.Cipher)
	if err != nil {
		return nil, err
	}
	if s.Span&SpanFile != 0 {
		return crypto.Decrypt(buf, ctx)
	}
	if s.Span&SpanHeader != 0 {
		if len(buf) < headerCipherSize {
			return nil, formatError("ヘッダー読み込み", 0, ErrTruncated)
		}
		plain, err := crypto.Decrypt(buf[:headerCipherSize], ctx)
		if err != nil {
			return nil, err
		}
		copy(buf, plain)
	}
	return buf, nil
}

func checkUniqueNames(entries []SampleEntry) error {
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			return formatError("名前確認", -1, fmt.Errorf("%w: %q (サンプル %d と %d)", ErrDuplicateName, e.Name, prev, e.Index))
		}
		seen[e.Name] = e.Index
	}
	return nil
}

// Serialize はバンクをバイト列に書き出します。
// サイズとオフセットの項目だけを現在のペイロードから再計算し、それ以外のヘッダーのバイト列は読み込み時のまま出力します。
// 暗号化されていたバンクは読み込み時と同じ方式と範囲で暗号化し直します。
func (b *Bank) Serialize() ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch b.header.Version {
	case FSB4:
		out, err = b.serializeFSB4()
	case FSB5:
		out, err = b.serializeFSB5()
	default:
		err = ErrUnknownProfile
	}
	if err != nil {
		return nil, err
	}

	if !b.scheme.Enabled() {
		return out, nil
	}
	ctx, err := cipherContext(b.scheme.Cipher)
	if err != nil {
		return nil, err
	}
	if b.scheme.Span&SpanFile != 0 {
		return crypto.Encrypt(out, ctx)
	}
	if b.scheme.Span&SpanPayload != 0 {
		start := int64(b.header.Size())
		end := start + b.header.DataSize
		copy(out[start:end], crypto.EncryptPrefix(out[start:end], ctx))
	}
	if b.scheme.Span&SpanHeader != 0 {
		enc, err := crypto.Encrypt(out[:headerCipherSize], ctx)
		if err != nil {
			return nil, err
		}
		copy(out, enc)
	}
	return out, nil
}

// Entries はサンプルテーブルのコピーをファイル順で返します
func (b *Bank) Entries() []SampleEntry {
	out := make([]SampleEntry, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.clone()
	}
	return out
}

// EntryAt は指定したインデックスのサンプルを返します
func (b *Bank) EntryAt(index int) (SampleEntry, error) {
	if index < 0 || index >= len(b.entries) {
		return SampleEntry{}, &IndexError{Index: index, Len: len(b.entries)}
	}
	return b.entries[index].clone(), nil
}

// Lookup は名前でサンプルを探します
func (b *Bank) Lookup(name string) (SampleEntry, bool) {
	for _, e := range b.entries {
		if e.Name == name {
			return e.clone(), true
		}
	}
	return SampleEntry{}, false
}

// PayloadAt は指定したインデックスのペイロードのコピーを返します
func (b *Bank) PayloadAt(index int) ([]byte, error) {
	if index < 0 || index >= len(b.entries) {
		return nil, &IndexError{Index: index, Len: len(b.entries)}
	}
	return bytes.Clone(b.payloads[index]), nil
}

// Offsets は各ペイロードのデータ領域先頭からのオフセットを返します。
// 初回呼び出し時に圧縮サイズの累積和として計算されます。
func (b *Bank) Offsets() []int64 {
	b.offsetsOnce.Do(func() {
		b.offsets = make([]int64, len(b.payloads))
		var off int64
		for i, p := range b.payloads {
			b.offsets[i] = off
			off += int64(len(p))
		}
	})
	return slices.Clone(b.offsets)
}

// Offset は指定したインデックスのペイロードのオフセットを返します
func (b *Bank) Offset(index int) (int64, error) {
	if index < 0 || index >= len(b.entries) {
		return 0, &IndexError{Index: index, Len: len(b.entries)}
	}
	return b.Offsets()[index], nil
}

// DataOffset はファイル先頭からデータ領域までのバイト数を返します
func (b *Bank) DataOffset() int64 {
	return int64(b.header.Size())
}

// Replace は index のペイロードを差し替えた新しい Bank を返します。
// payload はすでにバンクのコーデックで圧縮されている必要があります。
// 差し替えたエントリ以外のペイロードとメタデータは変更されず、レシーバーも変更されません。
func (b *Bank) Replace(index int, payload []byte, meta SampleMetadata) (*Bank, error) {
	if index < 0 || index >= len(b.entries) {
		return nil, &ReplaceError{Index: index, Err: ErrIndexOutOfRange}
	}

	if detected := DetectCodec(payload); detected != b.header.Codec {
		return nil, &ReplaceError{Index: index, Err: fmt.Errorf("%w: %s (期待値 %s)", ErrCodecMismatch, detected, b.header.Codec)}
	}

	meta.SeekTable = slices.Clone(meta.SeekTable)
	switch b.header.Codec {
	case CodecMPEG:
		// チャンネル数とサンプルレートはフレームヘッダーの値を正とする
		info, _ := ProbeMPEG(payload)
		meta.SampleRate = info.SampleRate
		meta.Channels = info.Channels
		if meta.Frames == 0 {
			meta.Frames = info.Frames
		}
	case CodecVorbis:
		if meta.VorbisCRC == 0 {
			return nil, &ReplaceError{Index: index, Err: fmt.Errorf("%w: VorbisのCRCがありません", ErrInvalidMetadata)}
		}
	}
	if err := validateMetadata(meta); err != nil {
		return nil, &ReplaceError{Index: index, Err: err}
	}

	data := bytes.Clone(payload)
	old := b.entries[index]
	var (
		entry SampleEntry
		err   error
	)
	switch b.header.Version {
	case FSB4:
		entry, err = rebuildFSB4Entry(old, len(data), meta)
	case FSB5:
		if rem := len(data) % fsb5DataAlign; rem != 0 {
			data = append(data, make([]byte, fsb5DataAlign-rem)...)
		}
		entry, err = rebuildFSB5Entry(old, len(data), meta, b.header.Codec)
	}
	if err != nil {
		return nil, &ReplaceError{Index: index, Err: err}
	}

	nb := b.clone()
	nb.entries[index] = entry
	nb.payloads[index] = data
	nb.refreshHeader()
	return nb, nil
}

func validateMetadata(meta SampleMetadata) error {
	switch {
	case meta.Channels <= 0:
		return fmt.Errorf("%w: チャンネル数 %d", ErrInvalidMetadata, meta.Channels)
	case meta.SampleRate <= 0:
		return fmt.Errorf("%w: サンプルレート %d", ErrInvalidMetadata, meta.SampleRate)
	case meta.HasLoop && meta.LoopEnd < meta.LoopStart:
		return fmt.Errorf("%w: ループ終了 %d < ループ開始 %d", ErrInvalidMetadata, meta.LoopEnd, meta.LoopStart)
	}
	return nil
}
