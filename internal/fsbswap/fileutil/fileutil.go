// Package fileutil はファイル操作のユーティリティ関数を提供します
package fileutil

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var (
	// BankFilePattern はサウンドバンクファイルのパターン
	BankFilePattern = regexp.MustCompile(`(?i)\.fsb(?:\.dcx)?$`)

	unsafeNameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)
)

// FileExists はファイルが存在するか確認します
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// FromShiftJIS はShift-JISからUTF-8に変換します
func FromShiftJIS(str string) (string, error) {
	reader := strings.NewReader(str)
	transformer := japanese.ShiftJIS.NewDecoder()
	ret, err := io.ReadAll(transform.NewReader(reader, transformer))
	if err != nil {
		return "", err
	}
	return string(ret), nil
}

// DecodeName はサンプル名を表示用の文字列にします。
// UTF-8として不正な名前はShift-JISとして解釈します
func DecodeName(name string) string {
	if utf8.ValidString(name) {
		return name
	}
	if decoded, err := FromShiftJIS(name); err == nil {
		return decoded
	}
	return strings.ToValidUTF8(name, "?")
}

// SanitizeName はファイル名に使えない文字を置き換えます
func SanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(DecodeName(name), "_")
	name = strings.Trim(name, " .")
	if name == "" {
		return "_"
	}
	return name
}

// OutputFilename は抽出するサンプルの出力ファイル名を生成します
func OutputFilename(index int, name, ext string) string {
	if name == "" {
		return fmt.Sprintf("%04d%s", index, ext)
	}
	return fmt.Sprintf("%04d_%s%s", index, SanitizeName(name), ext)
}

// WriteFileAtomic はロックを取得した上で一時ファイル経由でファイルを置き換えます。
// 読み手は常に古い内容か新しい内容のどちらかを見ます
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateDirectory, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: %w", ErrLockFile, err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(path + ".lock")
	}()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFile, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrWriteContent, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrWriteContent, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteContent, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteContent, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteContent, err)
	}
	return nil
}

// BackupPath はバックアップファイルのパスを返します
func BackupPath(path string) string {
	return path + ".bak"
}

// FindExecutable は外部ツールの実行ファイルを探します。
// configured が空でなければそのパスを、空ならPATHから name を探します
func FindExecutable(configured, name string) (string, error) {
	if configured != "" {
		return exec.LookPath(configured)
	}
	return exec.LookPath(name)
}
