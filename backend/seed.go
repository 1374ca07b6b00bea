package backend

import (
	"fmt"
	"os"

	"energyadmin/entity"

	"gopkg.in/yaml.v3"
)

// Seed holds the rows a backend starts with
type Seed struct {
	Plans []entity.Plan `yaml:"plans"`
	Users []entity.User `yaml:"users"`
}

func DefaultSeed() *Seed {
	return &Seed{
		Plans: []entity.Plan{
			{Id: "basic", Name: "Basic Saver", PriceCentsPerKwh: 22, RenewablePercent: 25},
			{Id: "green", Name: "Green Plus", PriceCentsPerKwh: 26, RenewablePercent: 100, IsFeatured: true},
			{Id: "night", Name: "Night Owl", PriceCentsPerKwh: 18, RenewablePercent: 40},
		},
		Users: []entity.User{
			{Id: "u_1", Name: "Ava Patel", Email: "ava@example.com", PlanId: entity.PlanRef("green"), BalanceCents: 1245, IsAdmin: true},
			{Id: "u_2", Name: "Liam Chen", Email: "liam@example.com", PlanId: entity.PlanRef("basic"), BalanceCents: -320},
			{Id: "u_3", Name: "Noah Smith", Email: "noah@example.com", BalanceCents: 0},
		},
	}
}

// LoadSeed reads seed rows from a YAML file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks id uniqueness, plan creation rules and user plan references
func (s *Seed) Validate() error {
	plans := make(map[string]bool, len(s.Plans))
	for i := range s.Plans {
		plan := &s.Plans[i]
		if plan.Id == "" {
			return fmt.Errorf("seed plan #%d: empty id", i)
		}
		if plans[plan.Id] {
			return fmt.Errorf("seed plan %s: duplicate id", plan.Id)
		}
		if err := plan.Validate(); err != nil {
			return fmt.Errorf("seed plan %s: %w", plan.Id, err)
		}
		plans[plan.Id] = true
	}
	users := make(map[string]bool, len(s.Users))
	for i := range s.Users {
		user := &s.Users[i]
		if user.Id == "" {
			return fmt.Errorf("seed user #%d: empty id", i)
		}
		if users[user.Id] {
			return fmt.Errorf("seed user %s: duplicate id", user.Id)
		}
		if user.PlanId != nil && !plans[*user.PlanId] {
			return fmt.Errorf("seed user %s: %w", user.Id, planNotFound(*user.PlanId))
		}
		users[user.Id] = true
	}
	return nil
}
