package repository

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"vabboost/internal/domain"
)

// RevenueQuery selects non-cancelled orders created in [From, To).
type RevenueQuery struct {
	From    time.Time
	To      time.Time
	ByMonth bool
}

type RevenueSummary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalOrders   int64   `json:"total_orders"`
	AvgOrderValue float64 `json:"avg_order_value"`
	MaxOrderValue float64 `json:"max_order_value"`
	MinOrderValue float64 `json:"min_order_value"`
}

type RevenueBucket struct {
	Period   string  `json:"period"`
	Orders   int64   `json:"orders"`
	Revenue  float64 `json:"revenue"`
	AvgOrder float64 `json:"avg_order"`
}

type HourlyRevenue struct {
	Hour    int     `json:"hour"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type RevenueStats struct {
	Summary RevenueSummary  `json:"summary"`
	Periods []RevenueBucket `json:"period_stats"`
	Hourly  []HourlyRevenue `json:"hourly_stats"`
}

type ServiceBreakdown struct {
	ServiceType     domain.ServiceType `json:"service_type"`
	OrderCount      int64              `json:"total_orders"`
	Revenue         float64            `json:"total_revenue"`
	AvgPrice        float64            `json:"avg_price"`
	MinPrice        float64            `json:"min_price"`
	MaxPrice        float64            `json:"max_price"`
	CompletedOrders int64              `json:"completed_orders"`
	CancelledOrders int64              `json:"cancelled_orders"`
	CompletionRate  float64            `json:"completion_rate"`
}

type RegionBreakdown struct {
	Region     string  `json:"region"`
	OrderCount int64   `json:"orders"`
	Revenue    float64 `json:"revenue"`
	AvgOrder   float64 `json:"avg_order"`
}

type RankProgression struct {
	CurrentRank string  `json:"current_rank"`
	TargetRank  string  `json:"target_rank"`
	OrderCount  int64   `json:"orders"`
	AvgPrice    float64 `json:"avg_price"`
}

type ServiceStats struct {
	Services     []ServiceBreakdown `json:"services"`
	Regions      []RegionBreakdown  `json:"regions"`
	Progressions []RankProgression  `json:"popular_progressions"`
}

// RevenueStats aggregates revenue over a window. Buckets are built in Go from
// the window's rows so the same code runs on SQLite and Postgres.
func (r *OrderRepository) RevenueStats(ctx context.Context, q RevenueQuery) (*RevenueStats, error) {
	scope := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("status <> ? AND created_at >= ? AND created_at < ?", domain.OrderCancelled, q.From, q.To)

	out := &RevenueStats{Periods: []RevenueBucket{}, Hourly: []HourlyRevenue{}}
	err := scope.Session(&gorm.Session{}).
		Select(`COALESCE(SUM(amount), 0) AS total_revenue, COUNT(*) AS total_orders,
			COALESCE(AVG(amount), 0) AS avg_order_value,
			COALESCE(MAX(amount), 0) AS max_order_value,
			COALESCE(MIN(amount), 0) AS min_order_value`).
		Scan(&out.Summary).Error
	if err != nil {
		return nil, err
	}

	var rows []struct {
		CreatedAt time.Time
		Amount    float64
	}
	if err := scope.Session(&gorm.Session{}).Select("created_at, amount").Order("created_at").Scan(&rows).Error; err != nil {
		return nil, err
	}

	layout := time.DateOnly
	if q.ByMonth {
		layout = "2006-01"
	}
	var hourly [24]HourlyRevenue
	for _, row := range rows {
		key := row.CreatedAt.In(q.From.Location()).Format(layout)
		if n := len(out.Periods); n == 0 || out.Periods[n-1].Period != key {
			out.Periods = append(out.Periods, RevenueBucket{Period: key})
		}
		b := &out.Periods[len(out.Periods)-1]
		b.Orders++
		b.Revenue += row.Amount

		h := &hourly[row.CreatedAt.In(q.From.Location()).Hour()]
		h.Orders++
		h.Revenue += row.Amount
	}
	for i := range out.Periods {
		b := &out.Periods[i]
		b.Revenue = round2(b.Revenue)
		b.AvgOrder = round2(b.Revenue / float64(b.Orders))
	}
	for hour, h := range hourly {
		if h.Orders > 0 {
			out.Hourly = append(out.Hourly, HourlyRevenue{Hour: hour, Orders: h.Orders, Revenue: round2(h.Revenue)})
		}
	}
	out.Summary.AvgOrderValue = round2(out.Summary.AvgOrderValue)
	return out, nil
}

// ServiceStats breaks orders down by service, by region and by the rank
// ranges bought at least minProgression times.
func (r *OrderRepository) ServiceStats(ctx context.Context, minProgression int) (*ServiceStats, error) {
	db := r.db.WithContext(ctx)
	out := &ServiceStats{Services: []ServiceBreakdown{}, Regions: []RegionBreakdown{}, Progressions: []RankProgression{}}

	err := db.Model(&domain.Order{}).
		Select(`service_type, COUNT(*) AS order_count, COALESCE(SUM(amount), 0) AS revenue,
			AVG(amount) AS avg_price, MIN(amount) AS min_price, MAX(amount) AS max_price,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed_orders,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS cancelled_orders`,
			domain.OrderCompleted, domain.OrderCancelled).
		Group("service_type").
		Order("revenue DESC").
		Scan(&out.Services).Error
	if err != nil {
		return nil, err
	}
	for i := range out.Services {
		s := &out.Services[i]
		s.AvgPrice = round2(s.AvgPrice)
		s.CompletionRate = round2(float64(s.CompletedOrders) * 100 / float64(s.OrderCount))
	}

	err = db.Model(&domain.Order{}).
		Select("region, COUNT(*) AS order_count, COALESCE(SUM(amount), 0) AS revenue, AVG(amount) AS avg_order").
		Where("status <> ?", domain.OrderCancelled).
		Group("region").
		Order("order_count DESC").
		Order("region").
		Scan(&out.Regions).Error
	if err != nil {
		return nil, err
	}
	for i := range out.Regions {
		out.Regions[i].AvgOrder = round2(out.Regions[i].AvgOrder)
	}

	err = db.Model(&domain.Order{}).
		Select("current_rank, target_rank, COUNT(*) AS order_count, AVG(amount) AS avg_price").
		Where("service_type = ? AND current_rank <> '' AND target_rank <> '' AND current_rank <> target_rank", domain.ServiceRankBoost).
		Group("current_rank, target_rank").
		Having("COUNT(*) >= ?", minProgression).
		Order("order_count DESC").
		Limit(10).
		Scan(&out.Progressions).Error
	if err != nil {
		return nil, err
	}
	for i := range out.Progressions {
		out.Progressions[i].AvgPrice = round2(out.Progressions[i].AvgPrice)
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
