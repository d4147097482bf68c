// Package server は、ラッパーモジュールを操作する検証用HTTPサーバーを提供します。
//
// このパッケージは、ベンチでの確認用にcamera.Moduleの操作を
// HTTP経由で呼び出せるようにします。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - カメラ情報とセッション一覧の取得
//   - セッションのオープン・クローズ
//   - パラメータの取得・設定（解像度の書き換えを含む）
//   - 書き換え処理単体の確認
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - パラメータはtext/plainの平坦化文字列でやり取りする
//   - 終了時は開いているセッションを全て閉じる
package server
