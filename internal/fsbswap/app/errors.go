package app

import "errors"

var (
	// ErrProfileRequired はプロファイルが指定されていない場合のエラー
	ErrProfileRequired = errors.New("プロファイルを指定してください（--profile または設定ファイルの profile）")

	// ErrNoRequests は差し替え指示が1件もない場合のエラー
	ErrNoRequests = errors.New("差し替え指示がありません")

	// ErrReadAudio は差し替える音声ファイルの読み込みに失敗した場合のエラー
	ErrReadAudio = errors.New("音声ファイルの読み込みに失敗しました")

	// ErrBackup はバックアップの作成に失敗した場合のエラー
	ErrBackup = errors.New("バックアップの作成に失敗しました")

	// ErrNoBanks はディレクトリにバンクファイルがない場合のエラー
	ErrNoBanks = errors.New("バンクファイルが見つかりません")
)
