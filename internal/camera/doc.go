// Package camera ベンダーカメラモジュールを包む転送レイヤーを提供する
//
// # 責務
// - ベンダーモジュールの遅延読み込み（1度だけ）
// - カメラIDの検証とセッションのオープン・クローズ
// - 各操作のベンダーデバイスへの転送
// - パラメータ操作（get/set/put）での解像度の書き換え
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - ベンダーモジュールの代わりに同じ形のモジュールを公開したい
// - ベンダーとの間でやり取りされるパラメータを書き換えたい
//
// # 仕様
// - Module: VendorModuleを実装し、オープン・クローズを1つのロックで直列化する
// - Session: Deviceを実装し、nilやクローズ済みの場合はベンダーを呼ばない
// - パラメータの書き換えはfixupパッケージに委譲する
// - MockModule / MockDevice: テストと検証サーバー用のベンダー実装（"mock"で登録）
package camera
