// Command scheduler fires the job trigger endpoints of the API server on a
// fixed timetable. Keeping the clock outside the server process lets the
// server stay stateless and lets operators re-run any job manually with curl.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"trading_backend/internal/shared/marketday"
)

type trigger struct {
	client  *http.Client
	baseURL string
	secret  string
}

func (t *trigger) fire(path string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		url := t.baseURL + path
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			log.Printf("[ERROR] build request %s: %v", path, err)
			return
		}
		req.Header.Set("Authorization", "Bearer "+t.secret)

		resp, err := t.client.Do(req)
		if err != nil {
			log.Printf("[ERROR] trigger %s: %v", path, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Printf("[ERROR] trigger %s: status %d", path, resp.StatusCode)
			return
		}
		log.Printf("[INFO] triggered %s", path)
	}
}

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	secret := os.Getenv("CRON_SECRET")
	if secret == "" {
		log.Fatal("CRON_SECRET is not set")
	}

	t := &trigger{
		client:  &http.Client{Timeout: 5 * time.Minute},
		baseURL: baseURL,
		secret:  secret,
	}

	// 取引所ローカル時刻で発火させる
	c := cron.New(cron.WithLocation(marketday.Location))

	jobs := []struct {
		spec string
		path string
	}{
		// 場中は5分おきに価格を取り込む（09:00〜15:30、平日）
		{"*/5 9-15 * * 1-5", "/cron/intraday"},
		// 大引け後に当日のローソク足を確定する
		{"40 15 * * 1-5", "/cron/daily-candle"},
		// 確定した資産額でスナップショットを残す
		{"50 15 * * 1-5", "/cron/snapshot"},
		// スナップショット後にランキングを再計算する
		{"0 16 * * 1-5", "/cron/ranking"},
		// 日付境界の処理（基準値リセット・リーグ再判定）
		{"0 0 * * *", "/cron/midnight"},
	}
	for _, j := range jobs {
		if _, err := c.AddFunc(j.spec, t.fire(j.path)); err != nil {
			log.Fatalf("register %s: %v", j.path, err)
		}
	}

	c.Start()
	log.Printf("[INFO] scheduler started (base=%s, tz=%s)", baseURL, marketday.Location)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("[INFO] received %s, stopping", sig)

	// 実行中のジョブを待ってから終了する
	<-c.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}
