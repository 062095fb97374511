package models

// Requests for the scout control surface. Defined in domain for consistency and reuse.

type CreateScoutRequest struct {
	Name        string         `json:"name" validate:"required,min=2"`
	Description string         `json:"description"`
	Tier        string         `json:"tier" default:"BASIC" validate:"oneof=BASIC PRO ELITE"`
	Strategy    string         `json:"strategy" validate:"required,oneof=EMA_CROSSOVER RSI_DIVERGENCE SUPPORT_RESISTANCE VOLUME_BREAKOUT"`
	Symbols     []string       `json:"symbols" validate:"required,min=1,unique,dive,required"`
	Interval    string         `json:"interval" default:"15s" validate:"required,min=2"`
	Config      map[string]any `json:"config"`
}

type UpdateScoutRequest struct {
	Name        string         `json:"name" validate:"omitempty,min=2"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
	Symbols     []string       `json:"symbols" validate:"omitempty,min=1,unique,dive,required"`
	Interval    string         `json:"interval" validate:"omitempty,min=2"`
}

type UpdateScoutStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

type DetectRequest struct {
	Symbol   string `json:"symbol" default:"BTC/USDT" validate:"required"`
	Strategy string `json:"strategy" default:"EMA_CROSSOVER" validate:"oneof=EMA_CROSSOVER RSI_DIVERGENCE SUPPORT_RESISTANCE VOLUME_BREAKOUT"`
}

type ListSignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
