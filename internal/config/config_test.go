package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv は設定に影響する環境変数をテスト中だけ空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{ConfigFileEnv, "SERVER_HOST", "PORT", "CAMWRAPPER_VENDOR", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host == "" {
		t.Error("サーバーホストが設定されていません")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("デフォルトのポート番号が一致しません: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	if cfg.Vendor.Module != "mock" {
		t.Errorf("デフォルトのベンダーモジュールが一致しません: %s", cfg.Vendor.Module)
	}
	if cfg.Vendor.MaxSessions <= 0 {
		t.Error("セッション数の上限が設定されていません")
	}
	if cfg.Vendor.ModeKey != "cam_mode" {
		t.Errorf("デフォルトのモードフラグが一致しません: %s", cfg.Vendor.ModeKey)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("デフォルトのログレベルが一致しません: %s", cfg.Log.Level)
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		modify    func(c *Config)
		expectErr bool
	}{
		{"正常な設定", func(c *Config) {}, false},
		{"ランダムポート", func(c *Config) { c.Server.Port = 0 }, false},
		{"無効なポート番号", func(c *Config) { c.Server.Port = 99999 }, true},
		{"負のポート番号", func(c *Config) { c.Server.Port = -1 }, true},
		{"ベンダーモジュールなし", func(c *Config) { c.Vendor.Module = "" }, true},
		{"セッション上限が0", func(c *Config) { c.Vendor.MaxSessions = 0 }, true},
		{"モードフラグなし", func(c *Config) { c.Vendor.ModeKey = "" }, true},
		{"無効なログレベル", func(c *Config) { c.Log.Level = "verbose" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestLoadFile はYAML設定ファイルの読み込みをテストする
func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "camwrapper.yaml")
	content := `
server:
  port: 9090
  read_timeout: 3s
vendor:
  module: vendor-camera
  max_sessions: 2
log:
  level: debug
  parameters: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("ポート番号が一致しません: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("読み込みタイムアウトが一致しません: got %s", cfg.Server.ReadTimeout)
	}
	// ファイルにない値はデフォルトのまま
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("ホストが一致しません: got %s", cfg.Server.Host)
	}
	if cfg.Vendor.Module != "vendor-camera" || cfg.Vendor.MaxSessions != 2 {
		t.Errorf("ベンダー設定が一致しません: %+v", cfg.Vendor)
	}
	if cfg.Vendor.ModeKey != "cam_mode" {
		t.Errorf("モードフラグが一致しません: %s", cfg.Vendor.ModeKey)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Parameters {
		t.Errorf("ログ設定が一致しません: %+v", cfg.Log)
	}
}

// TestLoadFileErrors は読み込みエラーをテストする
func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("存在しないファイルでエラーが発生しませんでした")
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("server: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(broken); err == nil {
		t.Error("不正なYAMLでエラーが発生しませんでした")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("log:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(invalid); err == nil {
		t.Error("無効な設定でエラーが発生しませんでした")
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	actual := cfg.ServerAddress()

	if actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
// 注意: このテストは環境変数を変更するため、parallelは使わない
func TestEnvironmentVariables(t *testing.T) {
	clearEnv(t)

	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("CAMWRAPPER_VENDOR", "vendor-camera")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("環境変数のホストが反映されていません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if cfg.Vendor.Module != "vendor-camera" {
		t.Errorf("環境変数のベンダーが反映されていません: got %s", cfg.Vendor.Module)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("環境変数のログレベルが反映されていません: got %s", cfg.Log.Level)
	}
}
