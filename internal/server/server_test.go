package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"camwrapper/internal/camera"
	"camwrapper/internal/config"
	"camwrapper/internal/fixup"
	"camwrapper/internal/params"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer はモックベンダーを使うサーバーを作成する
func newTestServer(t *testing.T, maxSessions int) (*Server, *camera.MockModule) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Vendor.MaxSessions = maxSessions

	vendor := camera.NewMockModule(2)
	fixer := fixup.New(nil)
	module := camera.NewModule(
		func() (camera.VendorModule, error) { return vendor, nil },
		fixer,
		camera.WithMaxSessions(maxSessions),
	)
	t.Cleanup(func() { _ = module.CloseAll() })

	return New(cfg, module, fixer, nil), vendor
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, s *Server, cameraID string) SessionResponse {
	t.Helper()

	rec := doRequest(t, s, http.MethodPost, "/api/cameras/"+cameraID+"/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("セッションのオープンに失敗しました: %d %s", rec.Code, rec.Body.String())
	}

	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("応答の解析に失敗しました: %v", err)
	}
	return resp
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t, 4)

	// テスト用のコンテキスト（タイムアウト付き）
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// サーバーが起動するまで少し待つ
	time.Sleep(100 * time.Millisecond)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("サーバーの起動/停止でエラーが発生しました: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}
}

// TestServerEndpoints は基本的なエンドポイントをテストする
func TestServerEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, 4)

	testCases := []struct {
		name           string
		method         string
		endpoint       string
		expectedStatus int
	}{
		{"ヘルスチェックエンドポイント", http.MethodGet, "/health", http.StatusOK},
		{"ステータスエンドポイント", http.MethodGet, "/api/status", http.StatusOK},
		{"カメラ一覧エンドポイント", http.MethodGet, "/api/cameras", http.StatusOK},
		{"セッション一覧エンドポイント", http.MethodGet, "/api/sessions", http.StatusOK},
		{"存在しないセッション", http.MethodGet, "/api/sessions/unknown/parameters", http.StatusNotFound},
		{"数値でないカメラID", http.MethodPost, "/api/cameras/front/sessions", http.StatusBadRequest},
		{"範囲外のカメラID", http.MethodPost, "/api/cameras/2/sessions", http.StatusBadRequest},
		{"不明な向き", http.MethodPost, "/api/fixup/sideways", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv, tc.method, tc.endpoint, "")
			if rec.Code != tc.expectedStatus {
				t.Errorf("予期しないステータスコード: got %d, want %d (%s)",
					rec.Code, tc.expectedStatus, rec.Body.String())
			}
		})
	}
}

// TestGetCameras はカメラ一覧の内容をテストする
func TestGetCameras(t *testing.T) {
	srv, _ := newTestServer(t, 4)

	rec := doRequest(t, srv, http.MethodGet, "/api/cameras", "")

	var resp CamerasResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("応答の解析に失敗しました: %v", err)
	}
	if len(resp.Cameras) != 2 {
		t.Fatalf("カメラ台数が一致しません: got %d, want 2", len(resp.Cameras))
	}
	if resp.Cameras[0].Facing != "back" || resp.Cameras[1].Facing != "front" {
		t.Errorf("カメラの向きが一致しません: %+v", resp.Cameras)
	}
}

// TestSessionLifecycle はセッションのオープンからクローズまでをテストする
func TestSessionLifecycle(t *testing.T) {
	srv, vendor := newTestServer(t, 4)

	session := openSession(t, srv, "0")
	if session.ID == "" || session.CameraID != 0 {
		t.Fatalf("セッション情報が不正です: %+v", session)
	}
	base := "/api/sessions/" + session.ID

	// パラメータの設定（setの書き換え）
	rec := doRequest(t, srv, http.MethodPut, base+"/parameters", "cam_mode=1;preview-size=1280x720")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("パラメータの設定に失敗しました: %d %s", rec.Code, rec.Body.String())
	}

	dev, _ := vendor.Device(0)
	stored := params.Parse(dev.Parameters())
	if v, _ := stored.Get(params.KeyVideoSize); v != "1280x720" {
		t.Errorf("ベンダーのvideo-sizeが一致しません: %q", v)
	}

	// パラメータの取得（getの書き換え）
	rec = doRequest(t, srv, http.MethodGet, base+"/parameters", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("パラメータの取得に失敗しました: %d", rec.Code)
	}
	got := params.Parse(rec.Body.String())
	if v, _ := got.Get(params.KeySupportedPreviewSizes); v != fixup.AdvertisedSizes {
		t.Errorf("supported-preview-sizesが一致しません: %q", v)
	}
	if v, _ := got.Get(params.KeyPreviewSize); v != "1280x720" {
		t.Errorf("preview-sizeが一致しません: %q", v)
	}

	// 操作の転送
	for _, action := range []string{"start-preview", "auto-focus", "take-picture", "cancel-picture", "stop-preview", "release"} {
		rec = doRequest(t, srv, http.MethodPost, base+"/actions/"+action, "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("操作 %s に失敗しました: %d %s", action, rec.Code, rec.Body.String())
		}
	}

	rec = doRequest(t, srv, http.MethodPost, base+"/actions/explode", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("不明な操作のステータスコード: got %d, want 404", rec.Code)
	}

	// プレビューなしの録画開始はベンダーのエラー
	rec = doRequest(t, srv, http.MethodPost, base+"/actions/start-recording", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("ベンダーエラーのステータスコード: got %d, want 502", rec.Code)
	}

	// ダンプ
	rec = doRequest(t, srv, http.MethodGet, base+"/dump", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "video-size: 1280x720") {
		t.Errorf("ダンプの内容が不正です: %d %s", rec.Code, rec.Body.String())
	}

	// セッション一覧
	rec = doRequest(t, srv, http.MethodGet, "/api/sessions", "")
	var list SessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("応答の解析に失敗しました: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0].ID != session.ID {
		t.Errorf("セッション一覧が一致しません: %+v", list.Sessions)
	}

	// クローズ
	rec = doRequest(t, srv, http.MethodDelete, base, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("クローズに失敗しました: %d %s", rec.Code, rec.Body.String())
	}
	if !dev.Closed() {
		t.Error("ベンダーデバイスがクローズされていません")
	}

	rec = doRequest(t, srv, http.MethodGet, base+"/parameters", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("クローズ後のステータスコード: got %d, want 404", rec.Code)
	}
}

// TestTooManySessions はセッション上限をテストする
func TestTooManySessions(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	openSession(t, srv, "0")

	rec := doRequest(t, srv, http.MethodPost, "/api/cameras/1/sessions", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("予期しないステータスコード: got %d, want 503", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("応答の解析に失敗しました: %v", err)
	}
	if resp.Error != "too_many_sessions" {
		t.Errorf("エラーコードが一致しません: %s", resp.Error)
	}
}

// TestFixupEndpoint は書き換え単体のエンドポイントをテストする
func TestFixupEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 4)

	rec := doRequest(t, srv, http.MethodPost, "/api/fixup/get", "cam_mode=1;video-size=640x480")
	if rec.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: %d", rec.Code)
	}

	got := params.Parse(rec.Body.String())
	want := map[string]string{
		params.KeyPreviewSize:           "720x480",
		params.KeyVideoSize:             "720x480",
		params.KeySupportedPreviewSizes: fixup.AdvertisedSizes,
	}
	for k, v := range want {
		if value, _ := got.Get(k); value != v {
			t.Errorf("%s が一致しません: got %q, want %q", k, value, v)
		}
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/fixup/set", strings.Repeat("a", maxParametersSize+1))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("上限超過のステータスコード: got %d, want 413", rec.Code)
	}
}

// TestNewFromConfig は設定からの組み立てをテストする
func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()

	srv, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("サーバーの作成に失敗しました: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/status", "")
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("応答の解析に失敗しました: %v", err)
	}
	if resp.Vendor != "mock" || resp.Cameras != 2 {
		t.Errorf("ステータスが一致しません: %+v", resp)
	}

	cfg.Vendor.Module = "vendor-camera"
	if _, err := NewFromConfig(cfg, nil); err == nil {
		t.Error("未登録のベンダーでエラーが発生しませんでした")
	}
}
