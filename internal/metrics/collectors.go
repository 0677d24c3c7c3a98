package metrics

import (
	"context"
	"fmt"
	"time"

	"dealscope/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// CustomCollector collects data-freshness metrics from the backing stores
type CustomCollector struct {
	log         *logger.Logger
	postgres    *sqlx.DB
	redis       *redis.Client
	dealsTable  string
	factorTable string

	// Descriptors
	openDeals    *prometheus.Desc
	factorRows   *prometheus.Desc
	cachedNews   *prometheus.Desc
	storeHealthy *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, rdb *redis.Client, dealsTable, factorTable string) *CustomCollector {
	return &CustomCollector{
		log:         log,
		postgres:    postgres,
		redis:       rdb,
		dealsTable:  dealsTable,
		factorTable: factorTable,

		openDeals: prometheus.NewDesc(
			"dealscope_open_deals",
			"Current number of rows in the open deals table",
			nil, nil,
		),
		factorRows: prometheus.NewDesc(
			"dealscope_factor_rows",
			"Current number of rows in the model factor table",
			nil, nil,
		),
		cachedNews: prometheus.NewDesc(
			"dealscope_cached_news_queries",
			"Number of news queries currently cached in Redis",
			nil, nil,
		),
		storeHealthy: prometheus.NewDesc(
			"dealscope_store_healthy",
			"Backing store reachability (0=down, 1=up)",
			[]string{"store"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openDeals
	ch <- c.factorRows
	ch <- c.cachedNews
	ch <- c.storeHealthy
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pgUp := 1.0
	if err := c.collectTableCount(ctx, ch, c.openDeals, c.dealsTable); err != nil {
		c.log.Warnw("Failed to collect open deals count", "error", err)
		pgUp = 0
	}
	if err := c.collectTableCount(ctx, ch, c.factorRows, c.factorTable); err != nil {
		c.log.Warnw("Failed to collect factor rows count", "error", err)
		pgUp = 0
	}
	ch <- prometheus.MustNewConstMetric(c.storeHealthy, prometheus.GaugeValue, pgUp, "postgres")

	redisUp := 1.0
	keys, err := c.redis.Keys(ctx, "news:*").Result()
	if err != nil {
		c.log.Warnw("Failed to collect cached news count", "error", err)
		redisUp = 0
	} else {
		ch <- prometheus.MustNewConstMetric(c.cachedNews, prometheus.GaugeValue, float64(len(keys)))
	}
	ch <- prometheus.MustNewConstMetric(c.storeHealthy, prometheus.GaugeValue, redisUp, "redis")
}

func (c *CustomCollector) collectTableCount(ctx context.Context, ch chan<- prometheus.Metric, desc *prometheus.Desc, table string) error {
	var count float64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := c.postgres.GetContext(ctx, &count, query); err != nil {
		return err
	}

	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, count)
	return nil
}
