package fileutil

import "errors"

var (
	// ErrCreateDirectory は出力先ディレクトリの作成に失敗した場合のエラー
	ErrCreateDirectory = errors.New("出力先ディレクトリの作成に失敗しました")

	// ErrCreateFile はファイルの作成に失敗した場合のエラー
	ErrCreateFile = errors.New("ファイルの作成に失敗しました")

	// ErrWriteContent は内容の書き込みに失敗した場合のエラー
	ErrWriteContent = errors.New("内容の書き込みに失敗しました")

	// ErrLockFile はファイルのロック取得に失敗した場合のエラー
	ErrLockFile = errors.New("ファイルのロックを取得できませんでした")

	// ErrReadDirectory はディレクトリ内のファイル一覧を取得できない場合のエラー
	ErrReadDirectory = errors.New("ディレクトリ内のファイル一覧を取得できませんでした")
)
