// Package main はcamwrapper検証サーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camwrapper/internal/camera"
	"camwrapper/internal/config"
	"camwrapper/internal/logging"
	"camwrapper/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", os.Getenv(config.ConfigFileEnv), "設定ファイルのパス (YAML)")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 127.0.0.1)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		vendor     = flag.String("vendor", "", "ベンダーモジュールID (デフォルト: mock)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("camwrapper")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Printf("登録済みのベンダーモジュール: %v\n", camera.Vendors())
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *vendor != "" {
		cfg.Vendor.Module = *vendor
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("サーバーの作成に失敗しました", zap.Error(err))
	}

	// サーバーを起動
	logger.Info("camwrapper サーバーを起動します",
		zap.String("addr", cfg.ServerAddress()),
		zap.String("vendor", cfg.Vendor.Module))
	if err := srv.Start(context.Background()); err != nil {
		logger.Fatal("サーバーの起動に失敗しました", zap.Error(err))
	}
}
