package fsb

import (
	"strings"
	"sync"

	"github.com/shiroemons/go-fsbswap/pkg/crypto"
)

// Profile は対応するゲームタイトルを表します
type Profile int

// Profile定数
const (
	ProfileSekiro   Profile = iota // SEKIRO: SHADOWS DIE TWICE
	ProfileDS3                     // DARK SOULS III
	ProfileDS2SotFS                // DARK SOULS II: Scholar of the First Sin
	ProfileDS1                     // DARK SOULS
)

// Span は暗号化される範囲を表します
type Span uint8

const (
	// SpanHeader は固定ヘッダーの先頭32バイト
	SpanHeader Span = 1 << iota
	// SpanPayload はサンプルデータ領域（ブロック境界に揃った部分）
	SpanPayload
	// SpanFile はファイル全体
	SpanFile
)

// Scheme はバンクに適用される暗号方式と範囲の組です
type Scheme struct {
	Cipher crypto.Mode
	Span   Span
}

// Enabled は暗号化されるかどうかを返します
func (s Scheme) Enabled() bool {
	return s.Cipher != crypto.ModeNone && s.Span != 0
}

// headerCipherSize はヘッダーのうち暗号化される長さ
const headerCipherSize = 32

// ProfileSpec はプロファイルごとの固定パラメータです
type ProfileSpec struct {
	Name    string
	Title   string
	Version Version
	Codec   Codec
	Cipher  crypto.Mode
	Span    Span

	// Fallback は主の方式で復号できない場合に試す方式です
	Fallback Scheme
}

// Schemes は判別を試す順に暗号方式を返します
func (s ProfileSpec) Schemes() []Scheme {
	schemes := []Scheme{{Cipher: s.Cipher, Span: s.Span}}
	if s.Fallback.Enabled() {
		schemes = append(schemes, s.Fallback)
	}
	return schemes
}

// FromSoftware作品共通のFSB鍵
var fsbKey = []byte("G0KTrWjS9syqF7vVD6RaVXlFD91gMgkC")

var profileSpecs = [...]ProfileSpec{
	ProfileSekiro: {
		Name:    "sekiro",
		Title:   "SEKIRO: SHADOWS DIE TWICE",
		Version: FSB5,
		Codec:   CodecVorbis,
		Cipher:  crypto.ModeECB,
		Span:    SpanHeader | SpanPayload,

		Fallback: Scheme{Cipher: crypto.ModeFsbext, Span: SpanFile},
	},
	ProfileDS3: {
		Name:    "ds3",
		Title:   "DARK SOULS III",
		Version: FSB5,
		Codec:   CodecVorbis,
		Cipher:  crypto.ModeECB,
		Span:    SpanHeader | SpanPayload,

		Fallback: Scheme{Cipher: crypto.ModeFsbext, Span: SpanFile},
	},
	ProfileDS2SotFS: {
		Name:    "ds2sotfs",
		Title:   "DARK SOULS II: Scholar of the First Sin",
		Version: FSB5,
		Codec:   CodecVorbis,
		Cipher:  crypto.ModeNone,
	},
	ProfileDS1: {
		Name:    "ds1",
		Title:   "DARK SOULS",
		Version: FSB4,
		Codec:   CodecMPEG,
		Cipher:  crypto.ModeNone,
	},
}

var profileAliases = map[string]Profile{
	"sekiro":     ProfileSekiro,
	"ds3":        ProfileDS3,
	"darksouls3": ProfileDS3,
	"ds2":        ProfileDS2SotFS,
	"ds2sotfs":   ProfileDS2SotFS,
	"ds2_sotfs":  ProfileDS2SotFS,
	"sotfs":      ProfileDS2SotFS,
	"ds1":        ProfileDS1,
	"darksouls":  ProfileDS1,
	"ptde":       ProfileDS1,
}

// 鍵素材はプロセス内で一度だけ展開します
var encryptionContexts = sync.OnceValues(func() (map[crypto.Mode]*crypto.Context, error) {
	contexts := make(map[crypto.Mode]*crypto.Context)
	for _, mode := range []crypto.Mode{crypto.ModeNone, crypto.ModeECB, crypto.ModeFsbext} {
		ctx, err := crypto.NewContext(mode, fsbKey)
		if err != nil {
			return nil, err
		}
		contexts[mode] = ctx
	}
	return contexts, nil
})

func cipherContext(mode crypto.Mode) (*crypto.Context, error) {
	contexts, err := encryptionContexts()
	if err != nil {
		return nil, err
	}
	ctx, ok := contexts[mode]
	if !ok {
		return nil, crypto.NewError("コンテキスト取得", crypto.ErrUnsupportedMode)
	}
	return ctx, nil
}

// Profiles は対応する全プロファイルを返します
func Profiles() []Profile {
	return []Profile{ProfileSekiro, ProfileDS3, ProfileDS2SotFS, ProfileDS1}
}

// ParseProfile は名前からプロファイルを取得します。大文字小文字は区別しません
func ParseProfile(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if p, ok := profileAliases[key]; ok {
		return p, nil
	}
	if p, ok := profileAliases[strings.ReplaceAll(key, "_", "")]; ok {
		return p, nil
	}
	return 0, ErrUnknownProfile
}

// Spec はプロファイルの固定パラメータを返します
func (p Profile) Spec() (ProfileSpec, error) {
	if p < 0 || int(p) >= len(profileSpecs) {
		return ProfileSpec{}, ErrUnknownProfile
	}
	return profileSpecs[p], nil
}

// String はプロファイル名を返します
func (p Profile) String() string {
	spec, err := p.Spec()
	if err != nil {
		return "unknown"
	}
	return spec.Name
}

// Encryption はプロファイルの主な暗号化コンテキストを返します
func (p Profile) Encryption() (*crypto.Context, error) {
	spec, err := p.Spec()
	if err != nil {
		return nil, err
	}
	return cipherContext(spec.Cipher)
}
