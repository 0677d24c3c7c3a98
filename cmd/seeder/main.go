package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"dealscope/internal/adapters/config"
	"dealscope/pkg/logger"
)

// Seeds the deals and model-factor tables with a small demo dataset so the
// pipeline can be exercised without a CRM export or a trained model.

type seedDeal struct {
	OpportunityNumber string
	Topic             string
	AccountName       string
	AccountIndustry   string
	OpportunityType   string
	Status            string
	ExpectedValue     float64
	WinProbability    float64
	PredictedOutcome  string
	DaysAgo           int
}

type seedFactors struct {
	OpportunityNumber string
	Prediction        float64 // log-odds
	EngagementScore   float64
	DealAgeDays       float64
	DiscountDepth     float64
	ChampionPresent   float64
}

var demoDeals = []seedDeal{
	{"OPP-1001", "Fleet tracking rollout", "Poseidon Lines", "Maritime", "New Business", "Open", 120000, 0.55, "Won", 12},
	{"OPP-1002", "Port automation pilot", "Harbor Corp", "Maritime", "New Business", "Open", 80000, 0.31, "Lost", 140},
	{"OPP-1003", "CRM renewal", "Acme Software", "Software", "Renewal", "Open", 45000, 0.88, "Won", 5},
	{"OPP-1004", "Analytics platform", "Northwind Retail", "Retail", "New Business", "Open", 230000, 0.42, "Lost", 60},
	{"OPP-1005", "Support contract upsell", "Acme Software", "Software", "Upsell", "Open", 15000, 0.73, "Won", 30},
}

var demoFactors = []seedFactors{
	{"OPP-1001", 0.20, 0.62, -0.18, -0.05, 0.31},
	{"OPP-1002", -0.80, 0.10, -0.95, -0.22, 0.05},
	{"OPP-1003", 2.00, 0.85, -0.02, 0.00, 0.74},
	{"OPP-1004", -0.32, 0.40, -0.51, -0.35, 0.12},
	// OPP-1005 deliberately has no factor row to exercise gap reporting.
}

func main() {
	drop := flag.Bool("drop", false, "Drop and recreate tables before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()

	log.Infow("Starting seeder",
		"database", cfg.Postgres.Database,
		"deals_table", cfg.Tables.OpenDeals,
		"factors_table", cfg.Tables.ShapFactors,
	)

	db, err := sqlx.Connect("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if *drop {
		if err := dropTables(ctx, db, cfg.Tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}
	if err := createTables(ctx, db, cfg.Tables); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}
	if err := seed(ctx, db, cfg.Tables); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.Infow("✅ Seeding complete", "deals", len(demoDeals), "factor_rows", len(demoFactors))
}

func dropTables(ctx context.Context, db *sqlx.DB, tables config.TablesConfig) error {
	for _, table := range []string{tables.OpenDeals, tables.ShapFactors} {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return err
		}
	}
	return nil
}

func createTables(ctx context.Context, db *sqlx.DB, tables config.TablesConfig) error {
	dealsDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			opportunity_number TEXT PRIMARY KEY,
			topic              TEXT NOT NULL,
			account_name       TEXT NOT NULL,
			account_industry   TEXT NOT NULL,
			opportunity_type   TEXT NOT NULL,
			op_status          TEXT NOT NULL,
			expected_value     NUMERIC(14,2) NOT NULL,
			win_probability    DOUBLE PRECISION NOT NULL,
			predicted_outcome  TEXT NOT NULL,
			op_created_on      TIMESTAMPTZ NOT NULL
		)`, tables.OpenDeals)

	factorsDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			opportunity_number TEXT PRIMARY KEY,
			prediction         DOUBLE PRECISION NOT NULL,
			engagement_score   DOUBLE PRECISION NOT NULL,
			deal_age_days      DOUBLE PRECISION NOT NULL,
			discount_depth     DOUBLE PRECISION NOT NULL,
			champion_present   DOUBLE PRECISION NOT NULL
		)`, tables.ShapFactors)

	for _, ddl := range []string{dealsDDL, factorsDDL} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func seed(ctx context.Context, db *sqlx.DB, tables config.TablesConfig) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	dealInsert := fmt.Sprintf(`
		INSERT INTO %s (opportunity_number, topic, account_name, account_industry,
			opportunity_type, op_status, expected_value, win_probability,
			predicted_outcome, op_created_on)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (opportunity_number) DO NOTHING`, tables.OpenDeals)

	now := time.Now()
	for _, d := range demoDeals {
		created := now.AddDate(0, 0, -d.DaysAgo)
		if _, err := tx.ExecContext(ctx, dealInsert,
			d.OpportunityNumber, d.Topic, d.AccountName, d.AccountIndustry,
			d.OpportunityType, d.Status, d.ExpectedValue, d.WinProbability,
			d.PredictedOutcome, created,
		); err != nil {
			return err
		}
	}

	factorInsert := fmt.Sprintf(`
		INSERT INTO %s (opportunity_number, prediction, engagement_score,
			deal_age_days, discount_depth, champion_present)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (opportunity_number) DO NOTHING`, tables.ShapFactors)

	for _, f := range demoFactors {
		if _, err := tx.ExecContext(ctx, factorInsert,
			f.OpportunityNumber, f.Prediction, f.EngagementScore,
			f.DealAgeDays, f.DiscountDepth, f.ChampionPresent,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}
