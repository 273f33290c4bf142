// Package db はMySQLへのGORM接続とマイグレーションを提供します。
package db

import (
	"fmt"
	"log"
	"os"
	"time"

	gmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	marketadapters "trading_backend/internal/feature/market/adapters"
	rankingadapters "trading_backend/internal/feature/ranking/adapters"
	tradingadapters "trading_backend/internal/feature/trading/adapters"
)

// Config はデータベース接続設定です。
// InstanceNameが設定されている場合はCloud SQLのUnixソケット接続を優先します。
type Config struct {
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	InstanceName string
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		Host:         os.Getenv("DB_HOST"),
		Port:         os.Getenv("DB_PORT"),
		InstanceName: os.Getenv("INSTANCE_CONNECTION_NAME"),
	}
}

// BuildDSN は設定からMySQLのDSN文字列を組み立てます。
func BuildDSN(cfg Config) string {
	if cfg.InstanceName != "" {
		return fmt.Sprintf("%s:%s@unix(/cloudsql/%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.InstanceName, cfg.Name)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

// Opener はDSNからgorm.DBを開く関数です。テストで差し替えます。
type Opener func(dsn string) (*gorm.DB, error)

// ConnectWithRetry は接続が確立するまで3秒間隔でリトライします。
// timeoutを超えた場合は最後のエラーを返します。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
		}
		log.Printf("DB connect failed, retrying...: %v", err)
		time.Sleep(3 * time.Second)
	}
}

// OpenDB は環境変数の設定で接続し、RUN_MIGRATIONS=trueの場合は
// 全テーブルのマイグレーションを実行します。起動時に1回だけ呼びます。
func OpenDB() *gorm.DB {
	dsn := BuildDSN(LoadConfigFromEnv())

	db, err := ConnectWithRetry(dsn, 60*time.Second, func(dsn string) (*gorm.DB, error) {
		return gorm.Open(gmysql.Open(dsn), &gorm.Config{})
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := db.AutoMigrate(
			&marketadapters.StockModel{},
			&marketadapters.LiveQuoteModel{},
			&marketadapters.CandleModel{},
			&tradingadapters.PortfolioModel{},
			&tradingadapters.HoldingModel{},
			&tradingadapters.TransactionModel{},
			&tradingadapters.CapitalHistoryModel{},
			&rankingadapters.RankingEntryModel{},
			&rankingadapters.PortfolioSnapshotModel{},
			&rankingadapters.JobRunModel{},
		); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	return db
}
