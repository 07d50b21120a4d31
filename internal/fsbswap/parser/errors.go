package parser

import "errors"

var (
	// ErrMissingAudioPath は音声ファイルのパスがない行のエラー
	ErrMissingAudioPath = errors.New("音声ファイルのパスがありません")

	// ErrMissingTarget は差し替え対象がない行のエラー
	ErrMissingTarget = errors.New("差し替え対象がありません")

	// ErrDuplicateTarget は同じ対象が複数回指定された場合のエラー
	ErrDuplicateTarget = errors.New("差し替え対象が重複しています")

	// ErrScanError はスキャンエラー
	ErrScanError = errors.New("スキャンエラー")
)
