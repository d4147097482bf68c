// Package params はカメラパラメータの平坦化文字列を扱う
//
// # 仕様
//   - 形式: key=value;key=value
//   - サイズ値は "WxH"、サイズ一覧はカンマ区切り
//   - 解析は寛容で、不正なセグメントは無視する
//   - キーの順序は最初に現れた順を保つ
package params
