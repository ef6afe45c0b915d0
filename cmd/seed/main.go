package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"billing-ledger/internal/config"
	"billing-ledger/internal/domain/model"
	pg "billing-ledger/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	productRepo := pg.NewPostgresProductRepo(pool)
	couponRepo := pg.NewPostgresCouponRepo(pool)

	// If products already exist, do nothing
	existing, err := productRepo.ListAvailable(ctx, nil)
	if err != nil {
		log.Fatalf("list products: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d products already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s (key=%s, price=%d, period=%d %s)\n", p.Name, p.Key, p.Price, p.PeriodInterval, p.PeriodUnit)
		}
		return
	}

	// Seed sample products and a welcome coupon for testing billing flows
	seed := []struct {
		Key      string
		Name     string
		Price    int64
		Interval int
		Unit     model.PeriodUnit
	}{
		{"basic-monthly", "Basic (monthly)", 900, 1, model.PeriodUnitMonth},
		{"pro-monthly", "Pro (monthly)", 2900, 1, model.PeriodUnitMonth},
		{"pro-yearly", "Pro (yearly)", 29_900, 1, model.PeriodUnitYear},
	}

	for _, s := range seed {
		p, err := model.NewProduct(uuid.NewString(), s.Key, s.Name, s.Price)
		if err != nil {
			log.Fatalf("create product %q: %v", s.Key, err)
		}
		p.PeriodInterval = s.Interval
		p.PeriodUnit = s.Unit
		if err := productRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("save product %q: %v", s.Key, err)
		}
		fmt.Printf("seeded: %s (id=%s, price=%d, period=%d %s)\n", p.Name, p.ID, p.Price, p.PeriodInterval, p.PeriodUnit)
	}

	amount := int64(-500)
	maxUses := 1
	welcome := &model.Coupon{
		ID:        uuid.NewString(),
		Style:     model.CouponStyleSubscription,
		Title:     "Welcome discount",
		Code:      "WELCOME",
		State:     model.CouponStateActive,
		Amount:    &amount,
		MaxUses:   &maxUses,
		Source:    "seed",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := welcome.Validate(); err != nil {
		log.Fatalf("welcome coupon: %v", err)
	}
	if err := couponRepo.Save(ctx, nil, welcome); err != nil {
		log.Fatalf("save coupon: %v", err)
	}
	fmt.Printf("seeded: coupon %s (code=%s)\n", welcome.Title, welcome.Code)

	fmt.Println("Seeding complete.")
}
