// Package errors はカスタムエラータイプを提供します
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shiroemons/go-fsbswap/pkg/fsb"
)

// Common errors
var (
	// ErrFileNotFound はファイルが見つからない場合のエラー
	ErrFileNotFound = errors.New("ファイルが見つかりません")

	// ErrInvalidBank はバンクファイルが無効な場合のエラー
	ErrInvalidBank = errors.New("無効なバンクファイルです")

	// ErrEntryNotFound は指定したサンプルが見つからない場合のエラー
	ErrEntryNotFound = errors.New("指定したサンプルが見つかりません")

	// ErrParseFailure は解析に失敗した場合のエラー
	ErrParseFailure = errors.New("データの解析に失敗しました")
)

// BankError はバンクファイルに対する操作のエラーです。
// 特定のサンプルに起因する場合は Sample にそのインデックスを持ちます。
type BankError struct {
	Op      string // 実行していた操作
	Path    string // バンクファイルのパス
	Profile string // 解析に使ったプロファイル名（不明な場合は空）
	Sample  int    // サンプルのインデックス（バンク全体の場合は -1）
	Err     error
}

// Error はエラーメッセージを返します
func (e *BankError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Profile != "" {
		b.WriteString(" [" + e.Profile + "]")
	}
	if e.Sample >= 0 {
		fmt.Fprintf(&b, " サンプル%d", e.Sample)
	}
	return fmt.Sprintf("%s: %v", b.String(), e.Err)
}

// Unwrap は元のエラーを返します
func (e *BankError) Unwrap() error {
	return e.Err
}

// NewBankError はバンク全体に対する操作のエラーを作成します
func NewBankError(op, path string, err error) *BankError {
	return &BankError{Op: op, Path: path, Sample: -1, Err: err}
}

// NewSampleError は index 番目のサンプルに対する操作のエラーを作成します
func NewSampleError(op, path string, index int, err error) *BankError {
	return &BankError{Op: op, Path: path, Sample: index, Err: err}
}

// WithProfile はプロファイル名を付けたエラーを返します
func (e *BankError) WithProfile(profile fsb.Profile) *BankError {
	c := *e
	c.Profile = profile.String()
	return &c
}

// ParseError は解析関連のエラー
type ParseError struct {
	File string // ファイル名
	Line int    // 行番号（1始まり、不明な場合は0）
	Err  error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%dの解析エラー: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%sの解析エラー: %v", e.File, e.Err)
}

// Unwrap は元のエラーを返します
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError は新しいParseErrorを作成します
func NewParseError(file string, line int, err error) *ParseError {
	return &ParseError{
		File: file,
		Line: line,
		Err:  err,
	}
}
