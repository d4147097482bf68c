package camera

import (
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionInfo はセッションの概要
type SessionInfo struct {
	ID       string    // セッションID
	CameraID int       // カメラID
	OpenedAt time.Time // オープンした時刻
}

// Session は開いたカメラ1台分の転送テーブル
// nilまたはクローズ済みのSessionに対する操作はベンダーを呼ばずに
// ErrInvalidArgument・false・空文字列を返すか、何もしない
type Session struct {
	id       string
	cameraID int
	openedAt time.Time

	module *Module
	logger *zap.Logger

	// vendorはクローズ時にnilになる
	// muはvendorの読み書きだけを守り、ベンダー呼び出し中は保持しない
	mu       sync.Mutex
	vendor   Device
	inflight sync.WaitGroup
}

// ID はセッションIDを返す
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// CameraID はカメラIDを返す
func (s *Session) CameraID() int {
	if s == nil {
		return -1
	}
	return s.cameraID
}

// Info はセッションの概要を返す
func (s *Session) Info() SessionInfo {
	if s == nil {
		return SessionInfo{CameraID: -1}
	}
	return SessionInfo{ID: s.id, CameraID: s.cameraID, OpenedAt: s.openedAt}
}

// acquire は実行中の呼び出しとして登録してベンダーデバイスを返す
// trueを返した場合は呼び出し側がdoneを呼ぶ
func (s *Session) acquire(op string) (Device, bool) {
	if s == nil {
		return nil, false
	}

	s.mu.Lock()
	dev := s.vendor
	if dev != nil {
		s.inflight.Add(1)
	}
	s.mu.Unlock()

	if dev == nil {
		return nil, false
	}
	s.logger.Debug(op)
	return dev, true
}

// done は実行中の呼び出しの登録を解除する
func (s *Session) done() {
	s.inflight.Done()
}

// detach はベンダーデバイスを切り離す
// 以降の操作はベンダーを呼ばずに無効ハンドルとして扱われる
func (s *Session) detach() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev := s.vendor
	s.vendor = nil
	return dev, dev != nil
}

// SetPreviewWindow はプレビューの出力先をベンダーに渡す
func (s *Session) SetPreviewWindow(window PreviewWindow) error {
	dev, ok := s.acquire("set_preview_window")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.SetPreviewWindow(window)
}

// SetCallbacks は通知とデータのコールバックをベンダーに登録する
func (s *Session) SetCallbacks(callbacks Callbacks) {
	dev, ok := s.acquire("set_callbacks")
	if !ok {
		return
	}
	defer s.done()
	dev.SetCallbacks(callbacks)
}

// EnableMsgType は指定したメッセージ種別の通知を有効にする
func (s *Session) EnableMsgType(msg MsgType) {
	dev, ok := s.acquire("enable_msg_type")
	if !ok {
		return
	}
	defer s.done()
	dev.EnableMsgType(msg)
}

// DisableMsgType は指定したメッセージ種別の通知を無効にする
func (s *Session) DisableMsgType(msg MsgType) {
	dev, ok := s.acquire("disable_msg_type")
	if !ok {
		return
	}
	defer s.done()
	dev.DisableMsgType(msg)
}

// MsgTypeEnabled はメッセージ種別が有効かどうかを返す
func (s *Session) MsgTypeEnabled(msg MsgType) bool {
	dev, ok := s.acquire("msg_type_enabled")
	if !ok {
		return false
	}
	defer s.done()
	return dev.MsgTypeEnabled(msg)
}

// StartPreview はプレビューを開始する
func (s *Session) StartPreview() error {
	dev, ok := s.acquire("start_preview")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.StartPreview()
}

// StopPreview はプレビューを停止する
func (s *Session) StopPreview() {
	dev, ok := s.acquire("stop_preview")
	if !ok {
		return
	}
	defer s.done()
	dev.StopPreview()
}

// PreviewEnabled はプレビュー中かどうかを返す
func (s *Session) PreviewEnabled() bool {
	dev, ok := s.acquire("preview_enabled")
	if !ok {
		return false
	}
	defer s.done()
	return dev.PreviewEnabled()
}

// StoreMetaDataInBuffers は録画バッファにメタデータを格納するかを設定する
func (s *Session) StoreMetaDataInBuffers(enable bool) error {
	dev, ok := s.acquire("store_meta_data_in_buffers")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.StoreMetaDataInBuffers(enable)
}

// StartRecording は録画を開始する
func (s *Session) StartRecording() error {
	dev, ok := s.acquire("start_recording")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.StartRecording()
}

// StopRecording は録画を停止する
func (s *Session) StopRecording() {
	dev, ok := s.acquire("stop_recording")
	if !ok {
		return
	}
	defer s.done()
	dev.StopRecording()
}

// RecordingEnabled は録画中かどうかを返す
func (s *Session) RecordingEnabled() bool {
	dev, ok := s.acquire("recording_enabled")
	if !ok {
		return false
	}
	defer s.done()
	return dev.RecordingEnabled()
}

// ReleaseRecordingFrame は録画フレームをベンダーに返却する
func (s *Session) ReleaseRecordingFrame(frame []byte) {
	dev, ok := s.acquire("release_recording_frame")
	if !ok {
		return
	}
	defer s.done()
	dev.ReleaseRecordingFrame(frame)
}

// AutoFocus はオートフォーカスを開始する
func (s *Session) AutoFocus() error {
	dev, ok := s.acquire("auto_focus")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.AutoFocus()
}

// CancelAutoFocus はオートフォーカスを中止する
func (s *Session) CancelAutoFocus() error {
	dev, ok := s.acquire("cancel_auto_focus")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.CancelAutoFocus()
}

// TakePicture は静止画を撮影する
func (s *Session) TakePicture() error {
	dev, ok := s.acquire("take_picture")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.TakePicture()
}

// CancelPicture は静止画の撮影を中止する
func (s *Session) CancelPicture() error {
	dev, ok := s.acquire("cancel_picture")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.CancelPicture()
}

// SetParameters は呼び出し元のパラメータを書き換えてからベンダーに渡す
func (s *Session) SetParameters(params string) error {
	dev, ok := s.acquire("set_parameters")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()

	fixed := s.module.fixer.Set(params)
	s.traceParameters("set_parameters", fixed)
	return dev.SetParameters(fixed)
}

// GetParameters はベンダーのパラメータを書き換えて返す
func (s *Session) GetParameters() string {
	dev, ok := s.acquire("get_parameters")
	if !ok {
		return ""
	}
	defer s.done()

	fixed := s.module.fixer.Get(dev.GetParameters())
	s.traceParameters("get_parameters", fixed)
	return fixed
}

// PutParameters は返却されるパラメータを書き換えてからベンダーに渡す
func (s *Session) PutParameters(params string) {
	dev, ok := s.acquire("put_parameters")
	if !ok {
		return
	}
	defer s.done()

	fixed := s.module.fixer.Put(params)
	s.traceParameters("put_parameters", fixed)
	dev.PutParameters(fixed)
}

// SendCommand はベンダー固有のコマンドを送る
func (s *Session) SendCommand(cmd, arg1, arg2 int32) error {
	dev, ok := s.acquire("send_command")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.SendCommand(cmd, arg1, arg2)
}

// Release はベンダーデバイスのリソースを解放する
func (s *Session) Release() {
	dev, ok := s.acquire("release")
	if !ok {
		return
	}
	defer s.done()
	dev.Release()
}

// Dump はベンダーデバイスの状態を書き出す
func (s *Session) Dump(w io.Writer) error {
	dev, ok := s.acquire("dump")
	if !ok {
		return ErrInvalidArgument
	}
	defer s.done()
	return dev.Dump(w)
}

// Close はセッションを破棄し、実行中の呼び出しが終わってからベンダーデバイスを閉じる
// ベンダー呼び出し中のコールバックから同じゴルーチンでCloseを呼んではならない
func (s *Session) Close() error {
	if s == nil || s.module == nil {
		return ErrInvalidArgument
	}
	return s.module.closeSession(s)
}

func (s *Session) traceParameters(op, params string) {
	if s.module.logParameters {
		s.logger.Info(op, zap.String("parameters", params))
	}
}

var (
	_ VendorModule = (*Module)(nil)
	_ Device       = (*Session)(nil)
)
