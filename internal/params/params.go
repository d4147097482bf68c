package params

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// 平坦化文字列の区切り文字
const (
	pairSeparator  = ";"
	valueSeparator = "="
)

// よく使われるパラメータキー
const (
	KeyPreviewSize                  = "preview-size"
	KeyVideoSize                    = "video-size"
	KeyPreferredPreviewSizeForVideo = "preferred-preview-size-for-video"
	KeySupportedPreviewSizes        = "supported-preview-sizes"
	KeySupportedVideoSizes          = "supported-video-sizes"

	// KeyCamMode はベンダー固有のモードフラグ
	KeyCamMode = "cam_mode"
)

var (
	// ErrInvalidKey はキーに区切り文字が含まれている場合のエラー
	ErrInvalidKey = errors.New("キーに区切り文字が含まれています")
	// ErrInvalidValue は値に区切り文字が含まれている場合のエラー
	ErrInvalidValue = errors.New("値に区切り文字が含まれています")
)

// Parameters はカメラ設定を表す順序付きのキー・値マップ
type Parameters struct {
	keys   []string
	values map[string]string
}

// New は空のParametersを作成する
func New() *Parameters {
	return &Parameters{values: make(map[string]string)}
}

// Parse は平坦化された設定文字列を解析する
// 不正なセグメントは読み飛ばし、エラーは返さない
func Parse(flattened string) *Parameters {
	p := New()

	for _, segment := range strings.Split(flattened, pairSeparator) {
		key, value, found := strings.Cut(segment, valueSeparator)
		if !found || key == "" {
			continue
		}
		p.put(key, value)
	}

	return p
}

// Flatten は key=value;key=value 形式の文字列に変換する
func (p *Parameters) Flatten() string {
	if len(p.keys) == 0 {
		return ""
	}

	// 出力長を事前に計算してバッファを確保
	size := len(p.keys) - 1
	for _, k := range p.keys {
		size += len(k) + len(valueSeparator) + len(p.values[k])
	}

	var b strings.Builder
	b.Grow(size)
	for i, k := range p.keys {
		if i > 0 {
			b.WriteString(pairSeparator)
		}
		b.WriteString(k)
		b.WriteString(valueSeparator)
		b.WriteString(p.values[k])
	}

	return b.String()
}

// String はFlattenと同じ
func (p *Parameters) String() string {
	return p.Flatten()
}

// Get は指定キーの値を取得する
func (p *Parameters) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has は指定キーが存在するか確認する
func (p *Parameters) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Set は値を設定する
// 既存キーの場合は位置を保ったまま値を置き換える
func (p *Parameters) Set(key, value string) error {
	if key == "" || strings.ContainsAny(key, valueSeparator+pairSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.Contains(value, pairSeparator) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}

	p.put(key, value)
	return nil
}

// Remove は指定キーを削除する（存在しなければ何もしない）
func (p *Parameters) Remove(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}

	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys は挿入順のキー一覧を返す
func (p *Parameters) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Len はエントリ数を返す
func (p *Parameters) Len() int {
	return len(p.keys)
}

// Clone はコピーを返す
func (p *Parameters) Clone() *Parameters {
	c := &Parameters{
		keys:   p.Keys(),
		values: make(map[string]string, len(p.values)),
	}
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// Equal は順序を無視してキーと値が一致するか比較する
func (p *Parameters) Equal(other *Parameters) bool {
	if other == nil || len(p.values) != len(other.values) {
		return false
	}
	for k, v := range p.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Int は値を整数として取得する
func (p *Parameters) Int(key string) (int, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetPreviewSize はプレビューサイズを設定する
func (p *Parameters) SetPreviewSize(width, height int) {
	p.put(KeyPreviewSize, Size{Width: width, Height: height}.String())
}

// SetVideoSize は動画サイズを設定する
func (p *Parameters) SetVideoSize(width, height int) {
	p.put(KeyVideoSize, Size{Width: width, Height: height}.String())
}

// PreviewSize はプレビューサイズを取得する
func (p *Parameters) PreviewSize() (Size, bool) {
	return p.size(KeyPreviewSize)
}

// VideoSize は動画サイズを取得する
func (p *Parameters) VideoSize() (Size, bool) {
	return p.size(KeyVideoSize)
}

// SupportedPreviewSizes はサポートされるプレビューサイズ一覧を取得する
func (p *Parameters) SupportedPreviewSizes() []Size {
	return ParseSizeList(p.values[KeySupportedPreviewSizes])
}

// SupportedVideoSizes はサポートされる動画サイズ一覧を取得する
func (p *Parameters) SupportedVideoSizes() []Size {
	return ParseSizeList(p.values[KeySupportedVideoSizes])
}

// Dump は1行1エントリでパラメータを書き出す
func (p *Parameters) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "parameters: %d entries\n", len(p.keys)); err != nil {
		return err
	}
	for _, k := range p.keys {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, p.values[k]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parameters) size(key string) (Size, bool) {
	v, ok := p.values[key]
	if !ok {
		return Size{}, false
	}
	s, err := ParseSize(v)
	if err != nil {
		return Size{}, false
	}
	return s, true
}

// put は検証なしで値を設定する
func (p *Parameters) put(key, value string) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}
