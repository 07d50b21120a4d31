package fsb

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func vorbisMeta() SampleMetadata {
	return SampleMetadata{
		Frames:     96000,
		Channels:   2,
		SampleRate: 48000,
		VorbisCRC:  0xCAFEBABE,
		SeekTable:  []uint32{0, 2048, 4096},
	}
}

func TestReplace_RecomputesOffsets(t *testing.T) {
	data := buildFSB5(t, CodecVorbis, defaultVorbisSamples(), true, []byte("tail"))
	bank := mustParse(t, data, ProfileDS2SotFS)
	entry0, _ := bank.EntryAt(0)
	payload0, _ := bank.PayloadAt(0)
	payload2, _ := bank.PayloadAt(2)

	newPayload := vorbisPayload(7, 61, 0x40)
	updated, err := bank.Replace(1, newPayload, vorbisMeta())
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	out, err := updated.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	reparsed := mustParse(t, out, ProfileDS2SotFS)

	offsets := reparsed.Offsets()
	want1 := int64(len(payload0))
	padded := (len(newPayload) + fsb5DataAlign - 1) / fsb5DataAlign * fsb5DataAlign
	want2 := want1 + int64(padded)
	if offsets[0] != 0 || offsets[1] != want1 || offsets[2] != want2 {
		t.Errorf("Offsets() = %v, want [0 %d %d]", offsets, want1, want2)
	}

	got0, _ := reparsed.EntryAt(0)
	if got0.Name != entry0.Name || got0.CompressedSize != entry0.CompressedSize || got0.VorbisCRC != entry0.VorbisCRC {
		t.Errorf("entry 0 が変更されました: %+v", got0)
	}
	if p, _ := reparsed.PayloadAt(0); !bytes.Equal(p, payload0) {
		t.Error("entry 0 のペイロードが変更されました")
	}
	if p, _ := reparsed.PayloadAt(2); !bytes.Equal(p, payload2) {
		t.Error("entry 2 のペイロードが変更されました")
	}

	got1, _ := reparsed.EntryAt(1)
	if got1.Name != "s_se_sword" {
		t.Errorf("entry 1 Name = %q", got1.Name)
	}
	if got1.Channels != 2 || got1.SampleRate != 48000 || got1.Frames != 96000 {
		t.Errorf("entry 1 = %+v", got1)
	}
	if got1.VorbisCRC != 0xCAFEBABE || !reflect.DeepEqual(got1.SeekTable, []uint32{0, 2048, 4096}) {
		t.Errorf("entry 1 Vorbis = (%#x, %v)", got1.VorbisCRC, got1.SeekTable)
	}
	if got1.HasLoop {
		t.Error("entry 1 にループが残っています")
	}
	if p, _ := reparsed.PayloadAt(1); !bytes.HasPrefix(p, newPayload) || len(p) != padded {
		t.Errorf("entry 1 のペイロード長 = %d, want %d", len(p), padded)
	}
	if !bytes.HasSuffix(out, []byte("tail")) {
		t.Error("末尾のバイト列が失われました")
	}
}

func TestReplace_FSB4DropsLoop(t *testing.T) {
	samples := defaultMPEGSamples()
	samples[1].loop = true
	samples[1].loopStart = 100
	samples[1].loopEnd = 2000
	bank := mustParse(t, buildFSB4(t, true, samples, nil), ProfileDS1)
	if e, _ := bank.EntryAt(1); !e.HasLoop {
		t.Fatal("entry 1 がループしていません")
	}

	updated, err := bank.Replace(1, mpegPayload(5, true), SampleMetadata{Frames: 5 * 1152, Channels: 1, SampleRate: 44100})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if e, _ := updated.EntryAt(1); e.HasLoop {
		t.Errorf("差し替え後もループが残っています: %d..%d", e.LoopStart, e.LoopEnd)
	}

	out, err := updated.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	got, _ := mustParse(t, out, ProfileDS1).EntryAt(1)
	if got.HasLoop {
		t.Errorf("再読み込み後もループが残っています: %d..%d", got.LoopStart, got.LoopEnd)
	}
	if got.LoopStart != 0 || got.LoopEnd != 5*1152-1 {
		t.Errorf("ループ範囲 = %d..%d, want 0..%d", got.LoopStart, got.LoopEnd, 5*1152-1)
	}

	// ループを指定した差し替えでは再びループが有効になる
	looped, err := updated.Replace(1, mpegPayload(5, true), SampleMetadata{Frames: 5 * 1152, Channels: 1, SampleRate: 44100, HasLoop: true, LoopStart: 10, LoopEnd: 500})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if e, _ := looped.EntryAt(1); !e.HasLoop || e.LoopStart != 10 || e.LoopEnd != 500 {
		t.Errorf("entry 1 = %+v", e)
	}
}

func TestReplace_Isolation(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		data    func(t *testing.T) []byte
		payload []byte
		meta    SampleMetadata
	}{
		{
			name:    "FSB5 Vorbis",
			profile: ProfileDS2SotFS,
			data: func(t *testing.T) []byte {
				return buildFSB5(t, CodecVorbis, defaultVorbisSamples(), true, nil)
			},
			payload: vorbisPayload(2, 10, 0x50),
			meta:    vorbisMeta(),
		},
		{
			name:    "FSB5 Vorbis 暗号化",
			profile: ProfileSekiro,
			data: func(t *testing.T) []byte {
				plain := buildFSB5(t, CodecVorbis, defaultVorbisSamples(), true, nil)
				return encryptFSB5(t, plain, profileContext(t, ProfileSekiro))
			},
			payload: vorbisPayload(9, 100, 0x60),
			meta:    vorbisMeta(),
		},
		{
			name:    "FSB4 MPEG",
			profile: ProfileDS1,
			data: func(t *testing.T) []byte {
				return buildFSB4(t, true, defaultMPEGSamples(), nil)
			},
			payload: mpegPayload(6, true),
			meta:    SampleMetadata{Channels: 2, SampleRate: 22050},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data(t)
			bank := mustParse(t, data, tt.profile)

			for i := range bank.Len() {
				updated, err := bank.Replace(i, tt.payload, tt.meta)
				if err != nil {
					t.Fatalf("Replace(%d) error = %v", i, err)
				}
				for j := range bank.Len() {
					if j == i {
						continue
					}
					before, _ := bank.EntryAt(j)
					after, _ := updated.EntryAt(j)
					if !reflect.DeepEqual(before, after) {
						t.Errorf("Replace(%d): entry %d が変更されました\nbefore=%+v\nafter=%+v", i, j, before, after)
					}
					pb, _ := bank.PayloadAt(j)
					pa, _ := updated.PayloadAt(j)
					if !bytes.Equal(pb, pa) {
						t.Errorf("Replace(%d): payload %d が変更されました", i, j)
					}
				}

				// 元のバンクは変更されない
				out, err := bank.Serialize()
				if err != nil {
					t.Fatalf("Serialize() error = %v", err)
				}
				if !bytes.Equal(out, data) {
					t.Fatalf("Replace(%d) 後に元のバンクが変化しました", i)
				}

				// 差し替え後のバンクも読み込める
				serialized, err := updated.Serialize()
				if err != nil {
					t.Fatalf("Serialize() error = %v", err)
				}
				reparsed := mustParse(t, serialized, tt.profile)
				if p, _ := reparsed.PayloadAt(i); !bytes.HasPrefix(p, tt.payload) {
					t.Errorf("Replace(%d): 再読み込み後のペイロードが一致しません", i)
				}
			}
		})
	}
}

func TestReplace_MPEGUsesFrameHeader(t *testing.T) {
	bank := mustParse(t, buildFSB4(t, true, defaultMPEGSamples(), nil), ProfileDS1)

	// メタデータのチャンネル数とレートは無視され、フレームヘッダーの値が使われる
	updated, err := bank.Replace(0, mpegPayload(5, true), SampleMetadata{Channels: 2, SampleRate: 8000})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	e, _ := updated.EntryAt(0)
	if e.Channels != 1 {
		t.Errorf("Channels = %d, want 1", e.Channels)
	}
	if e.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", e.SampleRate)
	}
	if e.Frames != 5*1152 {
		t.Errorf("Frames = %d, want %d", e.Frames, 5*1152)
	}
	if e.CompressedSize != 5*417 {
		t.Errorf("CompressedSize = %d, want %d", e.CompressedSize, 5*417)
	}

	out, err := updated.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	reparsed := mustParse(t, out, ProfileDS1)
	got, _ := reparsed.EntryAt(0)
	if got.Channels != 1 || got.SampleRate != 44100 || got.Name != "bgm_firelink" {
		t.Errorf("再読み込み後 entry 0 = %+v", got)
	}
	if reparsed.Header().DataSize != updated.Header().DataSize {
		t.Errorf("DataSize = %d, want %d", reparsed.Header().DataSize, updated.Header().DataSize)
	}
}

func TestReplace_FSB5UnusualFormat(t *testing.T) {
	bank := mustParse(t, buildFSB5(t, CodecVorbis, defaultVorbisSamples(), true, nil), ProfileDS2SotFS)

	meta := vorbisMeta()
	meta.SampleRate = 37800
	meta.Channels = 4
	meta.HasLoop = true
	meta.LoopStart = 100
	meta.LoopEnd = 90000

	updated, err := bank.Replace(2, vorbisPayload(1, 20, 0x70), meta)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	out, err := updated.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	got, _ := mustParse(t, out, ProfileDS2SotFS).EntryAt(2)
	if got.SampleRate != 37800 || got.Channels != 4 {
		t.Errorf("形式 = (%d Hz, %d ch), want (37800 Hz, 4 ch)", got.SampleRate, got.Channels)
	}
	if !got.HasLoop || got.LoopStart != 100 || got.LoopEnd != 90000 {
		t.Errorf("ループ = (%v, %d, %d)", got.HasLoop, got.LoopStart, got.LoopEnd)
	}
}

func TestReplace_Errors(t *testing.T) {
	vorbisBank := mustParse(t, buildFSB5(t, CodecVorbis, defaultVorbisSamples(), true, nil), ProfileDS2SotFS)
	mpegBank := mustParse(t, buildFSB4(t, true, defaultMPEGSamples(), nil), ProfileDS1)

	noCRC := vorbisMeta()
	noCRC.VorbisCRC = 0
	badLoop := vorbisMeta()
	badLoop.HasLoop = true
	badLoop.LoopStart = 10
	badLoop.LoopEnd = 5
	noChannels := vorbisMeta()
	noChannels.Channels = 0

	tests := []struct {
		name    string
		bank    *Bank
		index   int
		payload []byte
		meta    SampleMetadata
		want    error
	}{
		{"インデックスが範囲外", vorbisBank, 3, vorbisPayload(1, 10, 0), vorbisMeta(), ErrIndexOutOfRange},
		{"負のインデックス", vorbisBank, -1, vorbisPayload(1, 10, 0), vorbisMeta(), ErrIndexOutOfRange},
		{"VorbisバンクにMP3", vorbisBank, 0, mpegPayload(2, false), vorbisMeta(), ErrCodecMismatch},
		{"VorbisバンクにOgg", vorbisBank, 0, append([]byte("OggS"), vorbisPayload(1, 10, 0)...), vorbisMeta(), ErrCodecMismatch},
		{"MPEGバンクにVorbis", mpegBank, 0, vorbisPayload(2, 10, 0), vorbisMeta(), ErrCodecMismatch},
		{"空のペイロード", mpegBank, 0, nil, SampleMetadata{}, ErrCodecMismatch},
		{"CRCなし", vorbisBank, 0, vorbisPayload(1, 10, 0), noCRC, ErrInvalidMetadata},
		{"ループ範囲が逆", vorbisBank, 0, vorbisPayload(1, 10, 0), badLoop, ErrInvalidMetadata},
		{"チャンネル数0", vorbisBank, 0, vorbisPayload(1, 10, 0), noChannels, ErrInvalidMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := tt.bank.Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}

			updated, err := tt.bank.Replace(tt.index, tt.payload, tt.meta)
			if !errors.Is(err, tt.want) {
				t.Errorf("Replace() error = %v, want %v", err, tt.want)
			}
			if updated != nil {
				t.Error("Replace() が失敗時に Bank を返しました")
			}
			var replaceErr *ReplaceError
			if !errors.As(err, &replaceErr) || replaceErr.Index != tt.index {
				t.Errorf("Replace() error = %#v, want *ReplaceError{Index: %d}", err, tt.index)
			}

			after, err := tt.bank.Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if !bytes.Equal(before, after) {
				t.Error("失敗した Replace() でバンクが変化しました")
			}
		})
	}
}

func TestReplace_DoesNotAliasInput(t *testing.T) {
	bank := mustParse(t, buildFSB5(t, CodecVorbis, defaultVorbisSamples(), true, nil), ProfileDS2SotFS)
	payload := vorbisPayload(2, 32, 0x12)
	meta := vorbisMeta()

	updated, err := bank.Replace(0, payload, meta)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	payload[2] = 0xEE
	meta.SeekTable[0] = 0xEE

	got, _ := updated.PayloadAt(0)
	if got[2] == 0xEE {
		t.Error("Replace() が入力のペイロードを共有しています")
	}
	e, _ := updated.EntryAt(0)
	if e.SeekTable[0] == 0xEE {
		t.Error("Replace() が入力のシークテーブルを共有しています")
	}
}
