package camera

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"camwrapper/internal/fixup"
)

// Module はベンダーモジュールを包むラッパー
// VendorModuleと同じ形で呼び出し元に公開する
type Module struct {
	loader Loader

	// ベンダーモジュールの遅延読み込み用
	vendorMu sync.Mutex
	vendor   VendorModule

	// セッションのオープン・クローズを直列化する
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int

	fixer         *fixup.Fixer
	logger        *zap.Logger
	logParameters bool
}

// ModuleOption はModuleの設定
type ModuleOption func(*Module)

// WithMaxSessions は同時に開けるセッション数の上限を設定する（0は無制限）
func WithMaxSessions(n int) ModuleOption {
	return func(m *Module) {
		m.maxSessions = n
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *zap.Logger) ModuleOption {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithParameterLogging は書き換え後のパラメータ文字列をログに出す
func WithParameterLogging(enabled bool) ModuleOption {
	return func(m *Module) {
		m.logParameters = enabled
	}
}

// NewModule は新しいModuleを作成する
// ベンダーモジュールは最初に必要になった時点で読み込む
func NewModule(loader Loader, fixer *fixup.Fixer, opts ...ModuleOption) *Module {
	m := &Module{
		loader:   loader,
		sessions: make(map[string]*Session),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if fixer == nil {
		fixer = fixup.New(m.logger)
	}
	m.fixer = fixer
	return m
}

// vendorModule はベンダーモジュールを返す
// 読み込みに失敗した場合は次回の呼び出しで再試行する
func (m *Module) vendorModule() (VendorModule, error) {
	m.vendorMu.Lock()
	defer m.vendorMu.Unlock()

	if m.vendor != nil {
		return m.vendor, nil
	}
	if m.loader == nil {
		return nil, fmt.Errorf("%w: Loaderが設定されていません", ErrVendorUnavailable)
	}

	vendor, err := m.loader()
	if err != nil {
		m.logger.Error("ベンダーカメラモジュールの読み込みに失敗しました", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrVendorUnavailable, err)
	}
	if vendor == nil {
		return nil, ErrVendorUnavailable
	}

	m.vendor = vendor
	return vendor, nil
}

// NumberOfCameras はベンダーが報告するカメラ台数を返す
// ベンダーモジュールを開けない場合は0
func (m *Module) NumberOfCameras() int {
	vendor, err := m.vendorModule()
	if err != nil {
		return 0
	}
	return vendor.NumberOfCameras()
}

// CameraInfo は指定カメラの情報を取得する
func (m *Module) CameraInfo(id int) (Info, error) {
	vendor, err := m.vendorModule()
	if err != nil {
		return Info{}, err
	}
	return vendor.CameraInfo(id)
}

// Open はOpenSessionをDeviceとして返す
func (m *Module) Open(name string) (Device, error) {
	s, err := m.OpenSession(name)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSession はカメラを開き、ベンダーデバイスを包んだセッションを作成する
// 失敗した場合は何も残さない
func (m *Module) OpenSession(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vendor, err := m.vendorModule()
	if err != nil {
		return nil, err
	}

	cameraID, err := strconv.Atoi(name)
	if err != nil {
		return nil, fmt.Errorf("%w: カメラIDが数値ではありません: %q", ErrInvalidArgument, name)
	}

	numCameras := vendor.NumberOfCameras()
	if cameraID < 0 || cameraID >= numCameras {
		m.logger.Error("カメラIDが範囲外です",
			zap.Int("camera_id", cameraID),
			zap.Int("num_cameras", numCameras))
		return nil, fmt.Errorf("%w: カメラID %d は範囲外です（%d台）", ErrInvalidArgument, cameraID, numCameras)
	}

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("%w: セッション数が上限 %d に達しています", ErrResourceExhausted, m.maxSessions)
	}

	device, err := vendor.Open(name)
	if err != nil {
		m.logger.Error("ベンダーカメラのオープンに失敗しました",
			zap.Int("camera_id", cameraID),
			zap.Error(err))
		return nil, fmt.Errorf("ベンダーカメラ %d のオープンに失敗: %w", cameraID, err)
	}
	if device == nil {
		return nil, fmt.Errorf("%w: カメラ %d のデバイスがnilです", ErrVendorUnavailable, cameraID)
	}

	s := &Session{
		id:       uuid.New().String(),
		cameraID: cameraID,
		openedAt: time.Now(),
		module:   m,
		vendor:   device,
	}
	s.logger = m.logger.With(
		zap.Int("camera_id", cameraID),
		zap.String("session_id", s.id))

	m.sessions[s.id] = s
	s.logger.Info("カメラセッションを開きました")

	return s, nil
}

// closeSession はセッションを破棄し、ベンダーデバイスを閉じる
func (m *Module) closeSession(s *Session) error {
	m.mu.Lock()
	dev, ok := m.detachLocked(s)
	m.mu.Unlock()

	if !ok {
		return ErrInvalidArgument
	}
	return m.closeDevice(s, dev)
}

// detachLocked はセッションからベンダーデバイスを切り離し、テーブルから外す（ロック済み前提）
func (m *Module) detachLocked(s *Session) (Device, bool) {
	dev, ok := s.detach()
	if !ok {
		return nil, false
	}
	delete(m.sessions, s.id)
	return dev, true
}

// closeDevice は実行中の呼び出しを待ってからベンダーデバイスを閉じる
// 待機中はmuを保持しないので他のカメラの操作は止まらない
func (m *Module) closeDevice(s *Session, dev Device) error {
	s.inflight.Wait()

	m.mu.Lock()
	err := dev.Close()
	m.mu.Unlock()

	if err != nil {
		s.logger.Warn("ベンダーカメラのクローズに失敗しました", zap.Error(err))
		return fmt.Errorf("カメラ %d のクローズに失敗: %w", s.cameraID, err)
	}

	s.logger.Info("カメラセッションを閉じました")
	return nil
}

// CloseAll は全てのセッションを閉じる
func (m *Module) CloseAll() error {
	type detached struct {
		session *Session
		device  Device
	}

	m.mu.Lock()
	targets := make([]detached, 0, len(m.sessions))
	for _, s := range m.sessions {
		if dev, ok := m.detachLocked(s); ok {
			targets = append(targets, detached{session: s, device: dev})
		}
	}
	m.mu.Unlock()

	var closeErrors []error
	for _, t := range targets {
		if err := m.closeDevice(t.session, t.device); err != nil {
			closeErrors = append(closeErrors, err)
		}
	}

	if len(closeErrors) > 0 {
		return fmt.Errorf("一部のセッションのクローズに失敗: %w", errors.Join(closeErrors...))
	}
	return nil
}

// Session はIDでセッションを取得する
func (m *Module) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return s, ok
}

// Sessions は開いているセッションの一覧をオープン順に返す
func (m *Module) Sessions() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].OpenedAt.Before(infos[j].OpenedAt)
	})

	return infos
}
