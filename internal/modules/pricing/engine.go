package pricing

import (
	"fmt"
	"strings"

	"vabboost/internal/domain"
	"vabboost/internal/pkg/validator"
)

const (
	RankBoostBase  int64 = 1999
	PricePerWin    int64 = 299
	PlacementPrice int64 = 2499
	PricePerHour   int64 = 999
)

// RankLadder is ordered from lowest to highest.
var RankLadder = []string{"iron", "bronze", "silver", "gold", "platinum", "diamond", "ascendant", "immortal", "radiant"}

// RankPrices is the surcharge for leaving each rank on the way up.
var RankPrices = map[string]int64{
	"iron":      800,
	"bronze":    1000,
	"silver":    1200,
	"gold":      1500,
	"platinum":  1800,
	"diamond":   2200,
	"ascendant": 2600,
	"immortal":  3000,
	"radiant":   4000,
}

type tier struct {
	min     int
	percent int64
}

// Tiers are checked from the top; the first match wins.
var (
	rankTiers = []tier{{7, 20}, {5, 15}, {3, 10}}
	winTiers  = []tier{{20, 20}, {10, 15}, {5, 10}}
)

// OneX is a multiplier of 1 expressed in basis points.
const OneX int64 = 10000

// RegionTable maps an upper-case region code to a price multiplier in basis
// points (1.15 is 11500).
type RegionTable map[string]int64

type Params struct {
	CurrentRank string
	TargetRank  string
	Wins        *int
	Hours       *int
	Region      string
}

type Quote struct {
	Price     int64    `json:"price"`
	Breakdown []string `json:"breakdown"`
}

type Engine struct {
	regions RegionTable
}

func NewEngine(regions RegionTable) *Engine {
	if regions == nil {
		regions = RegionTable{}
	}
	return &Engine{regions: regions}
}

// Calculate prices a service. Parameter problems are returned together as a
// *validator.Errors; an unknown service is ErrUnknownService.
func (e *Engine) Calculate(service domain.ServiceType, p Params) (*Quote, error) {
	errs := &validator.Errors{}
	wins := countParam(errs, "wins", p.Wins)
	hours := countParam(errs, "hours", p.Hours)
	multiplier, regionLine := e.regionMultiplier(errs, p.Region)

	var q *Quote
	switch service {
	case domain.ServiceRankBoost:
		q = rankBoost(p.CurrentRank, p.TargetRank)
	case domain.ServiceWinsBoost:
		q = winsBoost(wins)
	case domain.ServicePlacement:
		q = &Quote{Price: PlacementPrice, Breakdown: []string{fmt.Sprintf("Placement matches: %d", PlacementPrice)}}
	case domain.ServiceCoaching:
		q = &Quote{
			Price: int64(hours) * PricePerHour,
			Breakdown: []string{
				fmt.Sprintf("Hours: %d", hours),
				fmt.Sprintf("Price per hour: %d", PricePerHour),
			},
		}
	case domain.ServiceCustom:
		return nil, ErrNotPriceable
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if multiplier != OneX {
		before := q.Price
		q.Price = applyMultiplier(q.Price, multiplier)
		q.Breakdown = append(q.Breakdown, fmt.Sprintf("%s: %d -> %d", regionLine, before, q.Price))
	}
	return q, nil
}

func rankBoost(current, target string) *Quote {
	q := &Quote{Price: RankBoostBase, Breakdown: []string{fmt.Sprintf("Base price: %d", RankBoostBase)}}

	from, to := rankIndex(current), rankIndex(target)
	if from < 0 || to < 0 || to <= from {
		return q
	}
	for _, rank := range RankLadder[from:to] {
		q.Price += RankPrices[rank]
		q.Breakdown = append(q.Breakdown, fmt.Sprintf("Rank %s: +%d", rank, RankPrices[rank]))
	}
	applyDiscount(q, to-from, rankTiers)
	return q
}

func winsBoost(wins int) *Quote {
	q := &Quote{
		Price: int64(wins) * PricePerWin,
		Breakdown: []string{
			fmt.Sprintf("Wins: %d", wins),
			fmt.Sprintf("Price per win: %d", PricePerWin),
		},
	}
	applyDiscount(q, wins, winTiers)
	return q
}

func applyDiscount(q *Quote, n int, tiers []tier) {
	for _, t := range tiers {
		if n >= t.min {
			off := (q.Price*t.percent + 50) / 100
			q.Price -= off
			q.Breakdown = append(q.Breakdown, fmt.Sprintf("Discount %d%%: -%d", t.percent, off))
			return
		}
	}
}

func (e *Engine) regionMultiplier(errs *validator.Errors, region string) (int64, string) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return OneX, ""
	}
	m, ok := e.regions[region]
	if !ok {
		errs.Add("region", "unknown region")
		return OneX, ""
	}
	return m, fmt.Sprintf("Region %s x%s", region, formatMultiplier(m))
}

func countParam(errs *validator.Errors, field string, v *int) int {
	if v == nil {
		return 1
	}
	if *v < 1 {
		errs.Add(field, "must be at least 1")
		return 1
	}
	return *v
}

func rankIndex(rank string) int {
	rank = strings.ToLower(strings.TrimSpace(rank))
	for i, r := range RankLadder {
		if r == rank {
			return i
		}
	}
	return -1
}

// applyMultiplier scales price by bp basis points, rounding half up.
func applyMultiplier(price, bp int64) int64 {
	return (price*bp + OneX/2) / OneX
}

// formatMultiplier renders basis points with at least two decimals: 11500 -> "1.15".
func formatMultiplier(bp int64) string {
	frac := strings.TrimRight(fmt.Sprintf("%04d", bp%OneX), "0")
	for len(frac) < 2 {
		frac += "0"
	}
	return fmt.Sprintf("%d.%s", bp/OneX, frac)
}
