// Package crypto はFromSoftware作品のFSBサウンドバンクで使用される暗号化を提供します。
//
// 主な機能:
//   - Context: 暗号方式と鍵素材を保持する暗号化コンテキスト
//   - Decrypt / Encrypt: ブロック境界に揃った領域の復号・暗号化
//   - DecryptPrefix / EncryptPrefix: 末尾の端数ブロックを平文のまま残す部分変換
//   - ModeFsbext: fsbextで暗号化されたバンク向けの、ビット反転と鍵のXORによるバイト単位の変換
//
// 暗号化を使用しないプロファイルでは None を渡すことで、同じ呼び出しが恒等変換になります。
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"math/bits"
)

// Mode は暗号方式を表します
type Mode int

const (
	// ModeNone は暗号化なし（恒等変換）
	ModeNone Mode = iota
	// ModeECB はAES-256 ECB
	ModeECB
	// ModeFsbext は各バイトのビット順を反転して鍵とXORする方式。長さの制約はありません
	ModeFsbext
)

// KeySize はAES-256の鍵長
const KeySize = 32

// BlockSize はAESのブロック長
const BlockSize = aes.BlockSize

// String はモード名を返します
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeECB:
		return "aes-256-ecb"
	case ModeFsbext:
		return "fsbext"
	default:
		return "unknown"
	}
}

// Context は暗号化コンテキストです。
// 生成後は変更されないため、複数のgoroutineから同時に使用できます。
type Context struct {
	mode  Mode
	block cipher.Block
	key   []byte
}

// None は暗号化を行わないコンテキスト
var None = &Context{mode: ModeNone}

// NewContext は新しいContextを作成します。key は32バイトである必要があります
func NewContext(mode Mode, key []byte) (*Context, error) {
	if mode == ModeNone {
		return None, nil
	}
	if len(key) != KeySize {
		return nil, newError("コンテキスト作成", ErrInvalidKey)
	}
	switch mode {
	case ModeECB:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, newError("コンテキスト作成", err)
		}
		return &Context{mode: mode, block: block}, nil
	case ModeFsbext:
		return &Context{mode: mode, key: clone(key)}, nil
	default:
		return nil, newError("コンテキスト作成", ErrUnsupportedMode)
	}
}

// Mode は暗号方式を返します
func (c *Context) Mode() Mode {
	if c == nil {
		return ModeNone
	}
	return c.mode
}

// Enabled は暗号化が有効かどうかを返します
func (c *Context) Enabled() bool {
	return c.Mode() != ModeNone
}

// Blocked はブロック単位の方式かどうかを返します
func (c *Context) Blocked() bool {
	return c.Mode() == ModeECB
}

// Decrypt は raw を復号した新しいスライスを返します。
// ブロック方式で raw がブロック境界に揃っていない場合は ErrInvalidCiphertext を返し、出力は返しません。
// ModeFsbext では先頭からの位置で鍵を選ぶため、raw はファイル先頭から渡します。
func Decrypt(raw []byte, ctx *Context) ([]byte, error) {
	if !ctx.Enabled() {
		return clone(raw), nil
	}
	if ctx.Blocked() && len(raw)%BlockSize != 0 {
		return nil, newError("復号", ErrInvalidCiphertext)
	}
	out := make([]byte, len(raw))
	ctx.decryptBlocks(out, raw)
	return out, nil
}

// Encrypt は plain を暗号化した新しいスライスを返します
func Encrypt(plain []byte, ctx *Context) ([]byte, error) {
	if !ctx.Enabled() {
		return clone(plain), nil
	}
	if ctx.Blocked() && len(plain)%BlockSize != 0 {
		return nil, newError("暗号化", ErrInvalidPlaintext)
	}
	out := make([]byte, len(plain))
	ctx.encryptBlocks(out, plain)
	return out, nil
}

// DecryptPrefix はブロック境界に揃った先頭部分だけを復号し、端数の末尾はそのままコピーします。
// ModeFsbext では全体を復号します
func DecryptPrefix(raw []byte, ctx *Context) []byte {
	out := clone(raw)
	if !ctx.Enabled() {
		return out
	}
	n := len(raw)
	if ctx.Blocked() {
		n = AlignedLen(n)
	}
	ctx.decryptBlocks(out[:n], raw[:n])
	return out
}

// EncryptPrefix はブロック境界に揃った先頭部分だけを暗号化し、端数の末尾はそのままコピーします。
// ModeFsbext では全体を暗号化します
func EncryptPrefix(plain []byte, ctx *Context) []byte {
	out := clone(plain)
	if !ctx.Enabled() {
		return out
	}
	n := len(plain)
	if ctx.Blocked() {
		n = AlignedLen(n)
	}
	ctx.encryptBlocks(out[:n], plain[:n])
	return out
}

// AlignedLen は n 以下で最大のブロック境界を返します
func AlignedLen(n int) int {
	return n - n%BlockSize
}

func (c *Context) decryptBlocks(dst, src []byte) {
	if len(src) == 0 {
		return
	}
	switch c.mode {
	case ModeECB:
		for i := 0; i < len(src); i += BlockSize {
			c.block.Decrypt(dst[i:i+BlockSize], src[i:i+BlockSize])
		}
	case ModeFsbext:
		for i, v := range src {
			dst[i] = bits.Reverse8(v) ^ c.key[i%len(c.key)]
		}
	}
}

func (c *Context) encryptBlocks(dst, src []byte) {
	if len(src) == 0 {
		return
	}
	switch c.mode {
	case ModeECB:
		for i := 0; i < len(src); i += BlockSize {
			c.block.Encrypt(dst[i:i+BlockSize], src[i:i+BlockSize])
		}
	case ModeFsbext:
		for i, v := range src {
			dst[i] = bits.Reverse8(v ^ c.key[i%len(c.key)])
		}
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
