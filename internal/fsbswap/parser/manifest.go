// Package parser は差し替え指示ファイルの解析を行います
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	fsberrors "github.com/shiroemons/go-fsbswap/internal/fsbswap/errors"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/fileutil"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ManifestParser は差し替え指示ファイルを解析します。
//
// 1行に「対象<TAB>音声ファイル」または「対象,音声ファイル」を書きます。
// 対象はサンプルのインデックスか名前です。# で始まる行と空行は無視します。
type ManifestParser struct{}

// NewManifestParser は新しいManifestParserを作成します
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// Parse は指示ファイルの内容を解析します。
// 相対パスは指示ファイルのディレクトリを基準に解決します。
func (p *ManifestParser) Parse(file string, data []byte) ([]models.ReplaceRequest, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	text := string(data)
	if !utf8.Valid(data) {
		decoded, err := fileutil.FromShiftJIS(text)
		if err != nil {
			return nil, fsberrors.NewParseError(file, 0, err)
		}
		text = decoded
	}

	base := filepath.Dir(file)
	seen := make(map[string]int)
	var requests []models.ReplaceRequest

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target, audio, ok := splitLine(line)
		if !ok || audio == "" {
			return nil, fsberrors.NewParseError(file, lineNo, ErrMissingAudioPath)
		}
		if target == "" {
			return nil, fsberrors.NewParseError(file, lineNo, ErrMissingTarget)
		}
		if prev, dup := seen[target]; dup {
			return nil, fsberrors.NewParseError(file, lineNo, fmt.Errorf("%w: %s (%d行目)", ErrDuplicateTarget, target, prev))
		}
		seen[target] = lineNo

		if !filepath.IsAbs(audio) {
			audio = filepath.Join(base, audio)
		}
		requests = append(requests, models.ReplaceRequest{
			Target:    target,
			AudioPath: audio,
			Line:      lineNo,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fsberrors.NewParseError(file, lineNo, fmt.Errorf("%w: %w", ErrScanError, err))
	}

	return requests, nil
}

// splitLine は行を対象と音声ファイルに分けます。タブ区切りを優先します
func splitLine(line string) (string, string, bool) {
	sep := "\t"
	if !strings.Contains(line, sep) {
		sep = ","
	}
	target, audio, ok := strings.Cut(line, sep)
	return strings.TrimSpace(target), strings.Trim(strings.TrimSpace(audio), `"`), ok
}
