package archive

import "errors"

var (
	// ErrEmptyFile はファイルサイズが0の場合のエラー
	ErrEmptyFile = errors.New("ファイルサイズが0です")

	// ErrUnwrapFailed はDCXの展開に失敗した場合のエラー
	ErrUnwrapFailed = errors.New("DCXの展開に失敗しました")

	// ErrWrapFailed はDCXの圧縮に失敗した場合のエラー
	ErrWrapFailed = errors.New("DCXの圧縮に失敗しました")
)
