package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCiphertext は暗号文が不正な場合のエラー（ブロック長不一致、鍵の不一致など）
	ErrInvalidCiphertext = errors.New("暗号文が不正です")

	// ErrInvalidPlaintext は平文がブロック境界に揃っていない場合のエラー
	ErrInvalidPlaintext = errors.New("平文の長さがブロック境界に揃っていません")

	// ErrInvalidKey は鍵長が不正な場合のエラー
	ErrInvalidKey = errors.New("鍵の長さが不正です")

	// ErrUnsupportedMode はサポートされていない暗号方式の場合のエラー
	ErrUnsupportedMode = errors.New("サポートされていない暗号方式です")
)

// Error は暗号処理のエラー
type Error struct {
	Op  string // 実行していた操作
	Err error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError は新しいErrorを作成します
func NewError(op string, err error) *Error {
	return newError(op, err)
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
