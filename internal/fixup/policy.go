package fixup

import "camwrapper/internal/params"

// SizeRule は解像度ラベルと実際のサイズの対応
type SizeRule struct {
	Label string
	Size  params.Size
}

// SizePolicy は優先順に照合する解像度表
var SizePolicy = []SizeRule{
	{Label: "1920x1080", Size: params.Size{Width: 1920, Height: 1080}},
	{Label: "1280x720", Size: params.Size{Width: 1280, Height: 720}},
}

// FallbackSize はどのラベルにも一致しない場合の解像度
var FallbackSize = params.Size{Width: 720, Height: 480}

// AdvertisedSizes はモードフラグ有効時に公開するサイズ一覧
const AdvertisedSizes = "1920x1080,1280x720,720x480"

// Resolve はラベルに対応する解像度を返す
// 完全一致しない値（空文字列を含む）はFallbackSizeになる
func Resolve(label string) params.Size {
	for _, rule := range SizePolicy {
		if rule.Label == label {
			return rule.Size
		}
	}
	return FallbackSize
}
