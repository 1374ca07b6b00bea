package pages

import (
	"context"
	"io"

	"energyadmin/billing"
	"energyadmin/entity"
	"energyadmin/utility"
)

type BillingState struct {
	Rows  []billing.Row `json:"rows"`
	Error string        `json:"error,omitempty"`
}

// Billing lists customer balances and records payments
type Billing struct {
	page
	users []entity.User
	plans []entity.Plan
}

func NewBilling(store Store) *Billing {
	return &Billing{page: page{name: "billing", store: store}}
}

func (b *Billing) Activate(ctx context.Context) error {
	gen := b.begin()
	users, plans, err := loadUsersAndPlans(ctx, b.store)
	if err != nil {
		return b.fail(gen, "load", err)
	}
	b.apply(gen, func() {
		b.users = users
		b.plans = plans
	})
	return nil
}

func (b *Billing) Rows() []billing.Row {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return billing.NewRows(b.users, b.plans)
}

// Pay subtracts an amount given in euros from the user's balance. The row is
// replaced with the record the store returns; a failed call leaves it as is.
func (b *Billing) Pay(ctx context.Context, userId string, euros string) error {
	gen, err := b.current()
	if err != nil {
		return err
	}
	cents, err := utility.EurosToCents(euros)
	if err != nil {
		return b.fail(gen, "pay", &entity.ValidationError{Field: "amount", Message: err.Error()})
	}
	updated, err := b.store.AdjustBalance(userId, cents).Wait(ctx)
	if err != nil {
		return b.fail(gen, "pay", err)
	}
	b.apply(gen, func() {
		entity.ReplaceUser(b.users, updated)
	})
	return nil
}

// Export writes the current rows as an xlsx workbook
func (b *Billing) Export(w io.Writer) error {
	return billing.WriteXlsx(w, b.Rows())
}

func (b *Billing) State() BillingState {
	return BillingState{
		Rows:  b.Rows(),
		Error: b.Error(),
	}
}
