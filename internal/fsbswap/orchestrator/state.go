package orchestrator

import (
	"errors"
	"fmt"
)

// State は差し替えジョブの状態です
type State int

const (
	StateIdle State = iota
	StateConverting
	StateEncoding
	StateReplaced
	StateFailed
)

// String は状態名を返します
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConverting:
		return "converting"
	case StateEncoding:
		return "encoding"
	case StateReplaced:
		return "replaced"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal は終端状態かどうかを返します
func (s State) Terminal() bool {
	return s == StateReplaced || s == StateFailed
}

// canTransition は状態遷移が許可されているかを返します
func canTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateConverting
	case StateConverting:
		return to == StateEncoding || to == StateFailed
	case StateEncoding:
		return to == StateReplaced || to == StateFailed
	default:
		return false
	}
}

var (
	// ErrConversionFailed は形式変換に失敗した場合のエラー
	ErrConversionFailed = errors.New("音声の形式変換に失敗しました")

	// ErrEncodingFailed はエンコードに失敗した場合のエラー
	ErrEncodingFailed = errors.New("音声のエンコードに失敗しました")

	// ErrReplaceRejected はバンクが差し替えを受け付けなかった場合のエラー
	ErrReplaceRejected = errors.New("差し替えが拒否されました")

	// ErrCollaboratorPanic は変換器やエンコーダーが panic した場合のエラー
	ErrCollaboratorPanic = errors.New("外部処理が異常終了しました")
)

// Error は差し替えジョブのエラーです。
// Err は ErrConversionFailed などの種別と原因を両方含みます。
type Error struct {
	JobID string
	Index int
	State State // 失敗した時点の状態
	Err   error
}

// Error はエラーメッセージを返します
func (e *Error) Error() string {
	return fmt.Sprintf("ジョブ %s (サンプル #%d) が %s で失敗しました: %v", e.JobID, e.Index, e.State, e.Err)
}

// Unwrap は内部エラーを返します
func (e *Error) Unwrap() error {
	return e.Err
}

// Transition は状態遷移の通知です
type Transition struct {
	JobID string
	Index int
	From  State
	To    State
	Err   error
}

// Observer は状態遷移を受け取る関数です
type Observer func(Transition)
