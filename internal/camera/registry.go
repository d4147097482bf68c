package camera

import (
	"fmt"
	"sort"
	"sync"
)

// Loader はベンダーモジュールを読み込む関数
type Loader func() (VendorModule, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Loader)
)

// RegisterVendor はモジュールIDに対応するLoaderを登録する
// 同じIDを二重に登録するとpanicする
func RegisterVendor(id string, loader Loader) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if loader == nil {
		panic("camera: RegisterVendor に nil の Loader が渡されました")
	}
	if _, dup := registry[id]; dup {
		panic("camera: ベンダーモジュールが二重に登録されました: " + id)
	}
	registry[id] = loader
}

// LookupVendor はモジュールIDからLoaderを取得する
func LookupVendor(id string) (Loader, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	loader, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: 未登録のモジュール %q", ErrVendorUnavailable, id)
	}
	return loader, nil
}

// Vendors は登録済みのモジュールID一覧を返す
func Vendors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
