package billing

import (
	"fmt"
	"io"

	"energyadmin/entity"
	"energyadmin/utility"

	"github.com/tealeg/xlsx"
)

const (
	NoPlan     = "—"
	reportName = "Billing"
)

// Row is a customer joined with the plan it is assigned to
type Row struct {
	UserId       string  `json:"user_id"`
	Customer     string  `json:"customer"`
	Email        string  `json:"email"`
	PlanId       *string `json:"plan_id"`
	PlanName     string  `json:"plan_name"`
	BalanceCents int     `json:"balance_cents"`
	Balance      string  `json:"balance"`
}

// NewRows joins users with plans. A plan id that does not resolve is shown as no plan.
func NewRows(users []entity.User, plans []entity.Plan) []Row {
	rows := make([]Row, 0, len(users))
	for i := range users {
		user := users[i].Clone()
		row := Row{
			UserId:       user.Id,
			Customer:     user.Name,
			Email:        user.Email,
			PlanId:       user.PlanId,
			PlanName:     NoPlan,
			BalanceCents: user.BalanceCents,
			Balance:      utility.IntAsPrice(user.BalanceCents),
		}
		if user.PlanId != nil {
			if plan := entity.FindPlan(plans, *user.PlanId); plan != nil {
				row.PlanName = plan.Name
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteXlsx writes the rows as a single sheet workbook
func WriteXlsx(w io.Writer, rows []Row) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(reportName)
	if err != nil {
		return fmt.Errorf("failed to add billing sheet, %v", err)
	}
	header := sheet.AddRow()
	for _, title := range []string{"Customer", "Email", "Plan", "Balance (€)", "Balance (cents)"} {
		header.AddCell().SetString(title)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Customer)
		r.AddCell().SetString(row.Email)
		r.AddCell().SetString(row.PlanName)
		r.AddCell().SetString(row.Balance)
		r.AddCell().SetInt(row.BalanceCents)
	}
	if err = file.Write(w); err != nil {
		return fmt.Errorf("failed to write billing report, %v", err)
	}
	return nil
}
