package entity

// Plan is an energy pricing offer. Price is in euro cents per kWh.
type Plan struct {
	Id               string `json:"id" bson:"id" yaml:"id"`
	Name             string `json:"name" bson:"name" yaml:"name"`
	PriceCentsPerKwh int    `json:"price_cents_per_kwh" bson:"price_cents_per_kwh" yaml:"price_cents_per_kwh"`
	RenewablePercent int    `json:"renewable_percent" bson:"renewable_percent" yaml:"renewable_percent"`
	IsFeatured       bool   `json:"is_featured,omitempty" bson:"is_featured" yaml:"is_featured"`
}

// PlanInput carries the fields accepted when a plan is created
type PlanInput struct {
	Name             string `json:"name"`
	PriceCentsPerKwh int    `json:"price_cents_per_kwh"`
	RenewablePercent int    `json:"renewable_percent"`
	IsFeatured       bool   `json:"is_featured,omitempty"`
}

func (i *PlanInput) Validate() error {
	return validatePlanFields(i.Name, i.PriceCentsPerKwh, i.RenewablePercent)
}

// NewPlan builds a plan from validated input
func (i *PlanInput) NewPlan(id string) Plan {
	return Plan{
		Id:               id,
		Name:             i.Name,
		PriceCentsPerKwh: i.PriceCentsPerKwh,
		RenewablePercent: i.RenewablePercent,
		IsFeatured:       i.IsFeatured,
	}
}

// Validate applies the creation rules to an existing plan, used when a plan is edited
func (p *Plan) Validate() error {
	return validatePlanFields(p.Name, p.PriceCentsPerKwh, p.RenewablePercent)
}

// PriceEuros returns the price per kWh as euros, like 0.26
func (p *Plan) PriceEuros() float64 {
	return float64(p.PriceCentsPerKwh) / 100
}

// FindPlan returns the plan with the given id, or nil
func FindPlan(plans []Plan, id string) *Plan {
	for i := range plans {
		if plans[i].Id == id {
			return &plans[i]
		}
	}
	return nil
}

// FeaturedPlan returns the first featured plan, falling back to the first plan
func FeaturedPlan(plans []Plan) *Plan {
	for i := range plans {
		if plans[i].IsFeatured {
			plan := plans[i]
			return &plan
		}
	}
	if len(plans) == 0 {
		return nil
	}
	plan := plans[0]
	return &plan
}

func ClonePlans(plans []Plan) []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}
