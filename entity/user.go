package entity

// User is a customer account. Balance is in euro cents, negative means credit owed to the user.
type User struct {
	Id           string  `json:"id" bson:"id" yaml:"id"`
	Name         string  `json:"name" bson:"name" yaml:"name"`
	Email        string  `json:"email" bson:"email" yaml:"email"`
	PlanId       *string `json:"plan_id" bson:"plan_id" yaml:"plan_id"`
	BalanceCents int     `json:"balance_cents" bson:"balance_cents" yaml:"balance_cents"`
	IsAdmin      bool    `json:"is_admin,omitempty" bson:"is_admin" yaml:"is_admin"`
}

// Clone returns a copy that shares no memory with the receiver
func (u *User) Clone() User {
	clone := *u
	if u.PlanId != nil {
		clone.PlanId = PlanRef(*u.PlanId)
	}
	return clone
}

func (u *User) HasPlan() bool {
	return u.PlanId != nil
}

// OnPlan reports whether the user is assigned to the plan with the given id
func (u *User) OnPlan(planId string) bool {
	return u.PlanId != nil && *u.PlanId == planId
}

// PlanRef returns a pointer to a copy of id, for use as User.PlanId
func PlanRef(id string) *string {
	return &id
}

// SamePlan compares two nullable plan references
func SamePlan(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func CloneUsers(users []User) []User {
	out := make([]User, len(users))
	for i := range users {
		out[i] = users[i].Clone()
	}
	return out
}

// ReplaceUser swaps the user with the same id for the given record, returns false when absent
func ReplaceUser(users []User, user User) bool {
	for i := range users {
		if users[i].Id == user.Id {
			users[i] = user.Clone()
			return true
		}
	}
	return false
}
