package pricing

type QuoteRequest struct {
	ServiceType string `json:"service_type" validate:"required,oneof=rank_boost wins_boost placement coaching"`
	CurrentRank string `json:"current_rank" validate:"omitempty,max=32"`
	TargetRank  string `json:"target_rank" validate:"omitempty,max=32"`
	Wins        *int   `json:"wins" validate:"omitempty,max=100"`
	Hours       *int   `json:"hours" validate:"omitempty,max=24"`
	Region      string `json:"region" validate:"omitempty,max=16"`
}

func (r QuoteRequest) Params() Params {
	return Params{
		CurrentRank: r.CurrentRank,
		TargetRank:  r.TargetRank,
		Wins:        r.Wins,
		Hours:       r.Hours,
		Region:      r.Region,
	}
}

type QuoteResponse struct {
	ServiceType    string   `json:"service_type" example:"wins_boost"`
	Price          int64    `json:"price" example:"2541"`
	FormattedPrice string   `json:"formatted_price" example:"2 541 ₽"`
	Breakdown      []string `json:"breakdown"`
}
