package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Size は "WxH" 形式で表される解像度
type Size struct {
	Width  int
	Height int
}

// String は "WxH" 形式の文字列を返す
func (s Size) String() string {
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
}

// ParseSize は "WxH" 形式の文字列を解析する
func ParseSize(s string) (Size, error) {
	w, h, found := strings.Cut(s, "x")
	if !found {
		return Size{}, fmt.Errorf("無効なサイズ形式: %q", s)
	}

	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Size{}, fmt.Errorf("無効な幅: %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Size{}, fmt.Errorf("無効な高さ: %q", s)
	}

	return Size{Width: width, Height: height}, nil
}

// ParseSizeList はカンマ区切りのサイズ一覧を解析する
// 解析できない要素は読み飛ばす
func ParseSizeList(s string) []Size {
	if s == "" {
		return nil
	}

	var sizes []Size
	for _, item := range strings.Split(s, ",") {
		size, err := ParseSize(strings.TrimSpace(item))
		if err != nil {
			continue
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// JoinSizes はサイズ一覧をカンマ区切りの文字列にする
func JoinSizes(sizes []Size) string {
	labels := make([]string, len(sizes))
	for i, s := range sizes {
		labels[i] = s.String()
	}
	return strings.Join(labels, ",")
}
