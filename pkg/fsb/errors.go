package fsb

import (
	"errors"
	"fmt"
)

// フォーマットエラー
var (
	// ErrBadMagic はマジックナンバーが一致しない場合のエラー
	ErrBadMagic = errors.New("マジックナンバーが一致しません")

	// ErrTruncated は宣言されたサイズが入力の長さを超えている場合のエラー
	ErrTruncated = errors.New("データが途中で切れています")

	// ErrProfileMismatch はバンクの形式やコーデックがプロファイルと一致しない場合のエラー
	ErrProfileMismatch = errors.New("プロファイルとバンクの形式が一致しません")

	// ErrCorruptLayout はサンプルヘッダーやデータ配置が不正な場合のエラー
	ErrCorruptLayout = errors.New("サンプルの配置が不正です")

	// ErrCorruptNameTable は名前テーブルが不正な場合のエラー
	ErrCorruptNameTable = errors.New("名前テーブルが不正です")

	// ErrDuplicateName はサンプル名が重複している場合のエラー
	ErrDuplicateName = errors.New("サンプル名が重複しています")

	// ErrUnknownProfile は未知のプロファイルの場合のエラー
	ErrUnknownProfile = errors.New("未知のプロファイルです")

	// ErrOffsetOverflow はオフセットやサイズがフィールドに収まらない場合のエラー
	ErrOffsetOverflow = errors.New("オフセットが表現可能な範囲を超えています")
)

// 差し替えエラー
var (
	// ErrIndexOutOfRange はインデックスが範囲外の場合のエラー
	ErrIndexOutOfRange = errors.New("インデックスが範囲外です")

	// ErrCodecMismatch はペイロードのコーデックがバンクのコーデックと一致しない場合のエラー
	ErrCodecMismatch = errors.New("ペイロードのコーデックがバンクと一致しません")

	// ErrInvalidMetadata は差し替え後のメタデータが不正な場合のエラー
	ErrInvalidMetadata = errors.New("メタデータが不正です")
)

// FormatError はバンクの読み込み・書き出しのエラー
type FormatError struct {
	Op     string // 実行していた操作
	Offset int64  // 問題のあったファイル内オフセット（不明な場合は-1）
	Err    error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s (オフセット 0x%X): %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatError(op string, offset int64, err error) *FormatError {
	return &FormatError{Op: op, Offset: offset, Err: err}
}

// ReplaceError はサンプル差し替えのエラー
type ReplaceError struct {
	Index int   // 対象のインデックス
	Err   error // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ReplaceError) Error() string {
	return fmt.Sprintf("サンプル %d の差し替え: %v", e.Index, e.Err)
}

// Unwrap は元のエラーを返します
func (e *ReplaceError) Unwrap() error {
	return e.Err
}

// IndexError はサンプルテーブルの範囲外アクセスのエラー
type IndexError struct {
	Index int
	Len   int
}

// Error はエラーメッセージを返します
func (e *IndexError) Error() string {
	return fmt.Sprintf("%v: %d (サンプル数 %d)", ErrIndexOutOfRange, e.Index, e.Len)
}

// Unwrap は ErrIndexOutOfRange を返します
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
