// Package encode はPCMをバンクのコーデックで圧縮するエンコーダーを提供します
package encode

import (
	"errors"
	"os/exec"
)

var commandContext = exec.CommandContext

var (
	// ErrUnsupportedCodec はエンコーダーが対象のコーデックを扱えない場合のエラー
	ErrUnsupportedCodec = errors.New("対応していないコーデックです")

	// ErrEncoderFailed は外部エンコーダーが失敗した場合のエラー
	ErrEncoderFailed = errors.New("エンコーダーの実行に失敗しました")

	// ErrInvalidOutput はエンコーダーの出力を解釈できない場合のエラー
	ErrInvalidOutput = errors.New("エンコーダーの出力が不正です")

	// ErrFormatMismatch は出力の形式が入力と異なる場合のエラー
	ErrFormatMismatch = errors.New("エンコード結果の形式が入力と一致しません")
)
