package camera

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrInvalidArgument は無効なハンドルや範囲外のカメラIDを表す
	ErrInvalidArgument = errors.New("無効な引数")

	// ErrResourceExhausted はセッションを確保できない場合のエラー
	ErrResourceExhausted = errors.New("リソースが不足しています")

	// ErrVendorUnavailable はベンダーモジュールを読み込めない場合のエラー
	ErrVendorUnavailable = errors.New("ベンダーカメラモジュールを開けません")
)

// Facing はカメラの向き
type Facing int

const (
	FacingBack  Facing = iota // 背面カメラ
	FacingFront               // 前面カメラ
)

// String は向きの名前を返す
func (f Facing) String() string {
	switch f {
	case FacingBack:
		return "back"
	case FacingFront:
		return "front"
	default:
		return "unknown"
	}
}

// Info はベンダーが報告するカメラ情報
type Info struct {
	Facing      Facing // カメラの向き
	Orientation int    // センサーの取り付け角度（0, 90, 180, 270）
}

// MsgType はコールバックで通知されるメッセージ種別のビットフラグ
type MsgType int32

const (
	MsgError           MsgType = 0x0001
	MsgShutter         MsgType = 0x0002
	MsgFocus           MsgType = 0x0004
	MsgZoom            MsgType = 0x0008
	MsgPreviewFrame    MsgType = 0x0010
	MsgVideoFrame      MsgType = 0x0020
	MsgPostviewFrame   MsgType = 0x0040
	MsgRawImage        MsgType = 0x0080
	MsgCompressedImage MsgType = 0x0100
	MsgRawImageNotify  MsgType = 0x0200
	MsgPreviewMetadata MsgType = 0x0400
	MsgAll             MsgType = 0xFFFF
)

// Callbacks はベンダーデバイスから呼び出し元への通知先
type Callbacks struct {
	Notify        func(msg MsgType, ext1, ext2 int32)
	Data          func(msg MsgType, data []byte, index uint)
	DataTimestamp func(timestamp time.Duration, msg MsgType, data []byte, index uint)
	RequestMemory func(size, count uint) [][]byte
}

// PreviewWindow はプレビュー出力先のバッファキュー
type PreviewWindow interface {
	DequeueBuffer() ([]byte, error)
	EnqueueBuffer(buf []byte) error
	CancelBuffer(buf []byte) error
	SetBufferCount(count int) error
	SetBuffersGeometry(width, height, format int) error
}

// VendorModule はベンダー提供のカメラモジュール
type VendorModule interface {
	// NumberOfCameras はカメラ台数を返す
	NumberOfCameras() int

	// CameraInfo は指定カメラの情報を取得する
	CameraInfo(id int) (Info, error)

	// Open は名前（10進数のカメラID）でデバイスを開く
	Open(name string) (Device, error)
}

// Device は開いたカメラに対する操作一式
type Device interface {
	SetPreviewWindow(window PreviewWindow) error
	SetCallbacks(callbacks Callbacks)
	EnableMsgType(msg MsgType)
	DisableMsgType(msg MsgType)
	MsgTypeEnabled(msg MsgType) bool

	StartPreview() error
	StopPreview()
	PreviewEnabled() bool
	StoreMetaDataInBuffers(enable bool) error

	StartRecording() error
	StopRecording()
	RecordingEnabled() bool
	ReleaseRecordingFrame(frame []byte)

	AutoFocus() error
	CancelAutoFocus() error
	TakePicture() error
	CancelPicture() error

	// SetParameters は平坦化されたパラメータを設定する
	SetParameters(params string) error
	// GetParameters は呼び出しごとに新しい文字列を返す
	GetParameters() string
	// PutParameters はGetParametersで受け取った文字列を返却する
	PutParameters(params string)

	SendCommand(cmd, arg1, arg2 int32) error
	Release()
	Dump(w io.Writer) error

	// Close はデバイスを閉じる
	Close() error
}
