package camera

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"camwrapper/internal/params"
)

// MockVendorID はモックベンダーモジュールの登録名
const MockVendorID = "mock"

// DefaultMockParameters はMockDeviceの初期パラメータ
const DefaultMockParameters = "preview-size=640x480;preview-frame-rate=30;video-size=1280x720;" +
	"supported-preview-sizes=1920x1080,1280x720,640x480;supported-video-sizes=1920x1080,1280x720,720x480;" +
	"picture-size=2048x1536"

func init() {
	RegisterVendor(MockVendorID, func() (VendorModule, error) {
		return NewMockModule(2), nil
	})
}

// MockModule はテスト用のベンダーモジュール
type MockModule struct {
	mu      sync.Mutex
	infos   []Info
	devices map[int]*MockDevice
	opens   int

	// テスト制御用
	shouldFailOpen bool
}

// NewMockModule は指定台数のカメラを持つMockModuleを作成する
// 偶数IDは背面、奇数IDは前面カメラになる
func NewMockModule(numCameras int) *MockModule {
	infos := make([]Info, numCameras)
	for i := range infos {
		if i%2 == 0 {
			infos[i] = Info{Facing: FacingBack, Orientation: 90}
		} else {
			infos[i] = Info{Facing: FacingFront, Orientation: 270}
		}
	}

	return &MockModule{
		infos:   infos,
		devices: make(map[int]*MockDevice),
	}
}

// NumberOfCameras はカメラ台数を返す
func (m *MockModule) NumberOfCameras() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.infos)
}

// CameraInfo はカメラ情報を返す
func (m *MockModule) CameraInfo(id int) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id < 0 || id >= len(m.infos) {
		return Info{}, fmt.Errorf("%w: カメラが見つかりません: %d", ErrInvalidArgument, id)
	}
	return m.infos[id], nil
}

// Open はMockDeviceを作成する
func (m *MockModule) Open(name string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailOpen {
		return nil, errors.New("モック: カメラのオープンに失敗")
	}

	id, err := strconv.Atoi(name)
	if err != nil || id < 0 || id >= len(m.infos) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidArgument, name)
	}

	dev := NewMockDevice(DefaultMockParameters)
	m.devices[id] = dev
	m.opens++
	return dev, nil
}

// Device は最後に開いたカメラのMockDeviceを返す
func (m *MockModule) Device(id int) (*MockDevice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.devices[id]
	return dev, ok
}

// Opens はOpenの成功回数を返す
func (m *MockModule) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// SetShouldFailOpen はテスト用にOpen失敗を設定する
func (m *MockModule) SetShouldFailOpen(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOpen = shouldFail
}

// MockDevice はテスト用のベンダーデバイス
// 受け取った呼び出しを記録する
type MockDevice struct {
	mu sync.Mutex

	parameters     string
	putParameters  []string
	calls          []string
	msgTypes       MsgType
	callbacks      Callbacks
	window         PreviewWindow
	previewing     bool
	recording      bool
	metaInBuffers  bool
	releasedFrames int
	closed         bool

	// テスト制御用
	shouldFailClose bool
}

// NewMockDevice は初期パラメータを持つMockDeviceを作成する
func NewMockDevice(initial string) *MockDevice {
	return &MockDevice{parameters: initial}
}

func (d *MockDevice) record(call string) {
	d.calls = append(d.calls, call)
}

// SetPreviewWindow はプレビューの出力先を記録する
func (d *MockDevice) SetPreviewWindow(window PreviewWindow) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set_preview_window")
	d.window = window
	return nil
}

// SetCallbacks はコールバックを保存する
func (d *MockDevice) SetCallbacks(callbacks Callbacks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set_callbacks")
	d.callbacks = callbacks
}

// EnableMsgType は指定したメッセージ種別の通知を有効にする
func (d *MockDevice) EnableMsgType(msg MsgType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("enable_msg_type")
	d.msgTypes |= msg
}

// DisableMsgType は指定したメッセージ種別の通知を無効にする
func (d *MockDevice) DisableMsgType(msg MsgType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("disable_msg_type")
	d.msgTypes &^= msg
}

// MsgTypeEnabled はメッセージ種別が有効かどうかを返す
func (d *MockDevice) MsgTypeEnabled(msg MsgType) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("msg_type_enabled")
	return d.msgTypes&msg != 0
}

// StartPreview はプレビュー中にする
func (d *MockDevice) StartPreview() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("start_preview")
	d.previewing = true
	return nil
}

// StopPreview はプレビューを止める
func (d *MockDevice) StopPreview() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("stop_preview")
	d.previewing = false
}

// PreviewEnabled はプレビュー中かどうかを返す
func (d *MockDevice) PreviewEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("preview_enabled")
	return d.previewing
}

// StoreMetaDataInBuffers は録画バッファにメタデータを格納するかを設定する
func (d *MockDevice) StoreMetaDataInBuffers(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("store_meta_data_in_buffers")
	d.metaInBuffers = enable
	return nil
}

// StartRecording は録画中にする（プレビュー中でなければエラー）
func (d *MockDevice) StartRecording() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("start_recording")
	if !d.previewing {
		return errors.New("モック: プレビューが開始されていません")
	}
	d.recording = true
	return nil
}

// StopRecording は録画を停止する
func (d *MockDevice) StopRecording() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("stop_recording")
	d.recording = false
}

// RecordingEnabled は録画中かどうかを返す
func (d *MockDevice) RecordingEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("recording_enabled")
	return d.recording
}

// ReleaseRecordingFrame は返却されたフレーム数を数える
func (d *MockDevice) ReleaseRecordingFrame(_ []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("release_recording_frame")
	d.releasedFrames++
}

// AutoFocus はフォーカス通知が有効ならNotifyを呼ぶ
func (d *MockDevice) AutoFocus() error {
	d.mu.Lock()
	d.record("auto_focus")
	notify := d.callbacks.Notify
	if d.msgTypes&MsgFocus == 0 {
		notify = nil
	}
	d.mu.Unlock()

	// コールバックはロックの外で呼ぶ
	if notify != nil {
		notify(MsgFocus, 1, 0)
	}
	return nil
}

// CancelAutoFocus はオートフォーカスを中止する
func (d *MockDevice) CancelAutoFocus() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("cancel_auto_focus")
	return nil
}

// TakePicture は静止画を撮影する
func (d *MockDevice) TakePicture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("take_picture")
	return nil
}

// CancelPicture は静止画の撮影を中止する
func (d *MockDevice) CancelPicture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("cancel_picture")
	return nil
}

// SetParameters はパラメータを保存する
func (d *MockDevice) SetParameters(p string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set_parameters")
	d.parameters = p
	return nil
}

// GetParameters は保存されたパラメータを返す
func (d *MockDevice) GetParameters() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("get_parameters")
	return d.parameters
}

// PutParameters は返却されたパラメータを記録する
func (d *MockDevice) PutParameters(p string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("put_parameters")
	d.putParameters = append(d.putParameters, p)
}

// SendCommand はベンダー固有のコマンドを送る
func (d *MockDevice) SendCommand(cmd, arg1, arg2 int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(fmt.Sprintf("send_command(%d,%d,%d)", cmd, arg1, arg2))
	return nil
}

// Release はプレビューと録画を止める
func (d *MockDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("release")
	d.previewing = false
	d.recording = false
}

// Dump は状態とパラメータを書き出す
func (d *MockDevice) Dump(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("dump")

	if _, err := fmt.Fprintf(w, "preview: %t\nrecording: %t\nmsg_types: %#04x\n",
		d.previewing, d.recording, int32(d.msgTypes)); err != nil {
		return err
	}
	return params.Parse(d.parameters).Dump(w)
}

// Close はデバイスをクローズ済みにする
func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")

	if d.closed {
		return errors.New("モック: 既にクローズされています")
	}
	d.closed = true
	if d.shouldFailClose {
		return errors.New("モック: クローズに失敗")
	}
	return nil
}

// Calls は記録された呼び出しの一覧を返す
func (d *MockDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := make([]string, len(d.calls))
	copy(calls, d.calls)
	return calls
}

// Parameters は最後に設定されたパラメータを返す
func (d *MockDevice) Parameters() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parameters
}

// PutParametersLog はPutParametersで受け取った文字列の一覧を返す
func (d *MockDevice) PutParametersLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	log := make([]string, len(d.putParameters))
	copy(log, d.putParameters)
	return log
}

// Closed はクローズ済みかどうかを返す
func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// SetShouldFailClose はテスト用にClose失敗を設定する
func (d *MockDevice) SetShouldFailClose(shouldFail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shouldFailClose = shouldFail
}
