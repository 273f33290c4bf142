package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"trading_backend/internal/app/di"
	marketadapters "trading_backend/internal/feature/market/adapters"
	marketusecase "trading_backend/internal/feature/market/usecase"
	infradb "trading_backend/internal/platform/db"
	"trading_backend/internal/shared/marketday"
)

func main() {
	dateFlag := flag.String("date", "", "trading date to backfill (2006-01-02)")
	flag.Parse()

	if *dateFlag == "" {
		log.Fatal("usage: backfill -date 2006-01-02")
	}
	date, err := marketday.Parse(*dateFlag)
	if err != nil {
		log.Fatal("invalid date:", err)
	}

	_ = godotenv.Load()

	db := infradb.OpenDB()
	stockRepo := marketadapters.NewStockRepository(db)
	quoteRepo := marketadapters.NewQuoteRepository(db)
	candleRepo := marketadapters.NewCandleRepository(db)
	provider := marketadapters.NewKISProvider(di.NewQuoteClient())
	uc := marketusecase.NewCollectorUsecase(stockRepo, quoteRepo, candleRepo, provider)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	filled, err := uc.BackfillDate(ctx, date)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("backfill ok: %d candles for %s", filled, date)
}
