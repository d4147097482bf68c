package fixup

import (
	"fmt"

	"go.uber.org/zap"

	"camwrapper/internal/params"
)

// Direction はパラメータが境界を越える向き
type Direction int

const (
	DirectionGet Direction = iota // ベンダー → 呼び出し元
	DirectionSet                  // 呼び出し元 → ベンダー
	DirectionPut                  // ベンダーへの返却
)

// String は向きの名前を返す
func (d Direction) String() string {
	switch d {
	case DirectionGet:
		return "get"
	case DirectionSet:
		return "set"
	case DirectionPut:
		return "put"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection は名前から向きを取得する
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "get":
		return DirectionGet, nil
	case "set":
		return DirectionSet, nil
	case "put":
		return DirectionPut, nil
	default:
		return 0, fmt.Errorf("不明な向き: %q", s)
	}
}

// rule は向きごとの書き換え対象
type rule struct {
	strip     string   // モードフラグに関係なく削除するキー
	source    string   // 解像度を読むキー
	targets   []string // 解決した解像度を書き込むキー
	advertise string   // AdvertisedSizesを書き込むキー
}

var rules = map[Direction]rule{
	DirectionGet: {
		strip:     params.KeySupportedPreviewSizes,
		source:    params.KeyVideoSize,
		targets:   []string{params.KeyPreviewSize, params.KeyVideoSize},
		advertise: params.KeySupportedPreviewSizes,
	},
	DirectionSet: {
		source: params.KeyPreviewSize,
		targets: []string{
			params.KeyVideoSize,
			params.KeyPreferredPreviewSizeForVideo,
			params.KeyPreviewSize,
		},
		advertise: params.KeySupportedVideoSizes,
	},
	DirectionPut: {
		source: params.KeyVideoSize,
		targets: []string{
			params.KeyPreviewSize,
			params.KeyPreferredPreviewSizeForVideo,
			params.KeyVideoSize,
		},
	},
}

// Fixer は解像度関連のパラメータを書き換える
// 呼び出しをまたいだ状態は持たない
type Fixer struct {
	logger  *zap.Logger
	modeKey string
}

// Option はFixerの設定
type Option func(*Fixer)

// WithModeKey はモードフラグのキーを変更する
func WithModeKey(key string) Option {
	return func(f *Fixer) {
		f.modeKey = key
	}
}

// New は新しいFixerを作成する
func New(logger *zap.Logger, opts ...Option) *Fixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fixer{
		logger:  logger,
		modeKey: params.KeyCamMode,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get はベンダーから受け取ったパラメータを書き換える
func (f *Fixer) Get(flattened string) string {
	return f.Apply(DirectionGet, flattened)
}

// Set は呼び出し元から受け取ったパラメータを書き換える
func (f *Fixer) Set(flattened string) string {
	return f.Apply(DirectionSet, flattened)
}

// Put はベンダーへ返却するパラメータを書き換える
func (f *Fixer) Put(flattened string) string {
	return f.Apply(DirectionPut, flattened)
}

// Apply は指定した向きの書き換えを行い、新しく平坦化した文字列を返す
func (f *Fixer) Apply(dir Direction, flattened string) string {
	r, ok := rules[dir]
	if !ok {
		return params.Parse(flattened).Flatten()
	}

	p := params.Parse(flattened)

	if r.strip != "" {
		p.Remove(r.strip)
	}

	if p.Has(f.modeKey) {
		source, _ := p.Get(r.source)
		size := Resolve(source)
		for _, key := range r.targets {
			// サイズ文字列は区切り文字を含まないので失敗しない
			_ = p.Set(key, size.String())
		}
		if r.advertise != "" {
			_ = p.Set(r.advertise, AdvertisedSizes)
		}

		f.logger.Debug("解像度を書き換えました",
			zap.Stringer("direction", dir),
			zap.String("source", source),
			zap.Stringer("size", size))
	}

	return p.Flatten()
}
