package billing

import (
	"bytes"
	"testing"

	"energyadmin/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func sampleRows() []Row {
	plans := []entity.Plan{
		{Id: "basic", Name: "Basic Saver", PriceCentsPerKwh: 22, RenewablePercent: 25},
		{Id: "green", Name: "Green Plus", PriceCentsPerKwh: 26, RenewablePercent: 100},
	}
	users := []entity.User{
		{Id: "u_1", Name: "Ava Patel", Email: "ava@example.com", PlanId: entity.PlanRef("green"), BalanceCents: 1245},
		{Id: "u_2", Name: "Liam Chen", Email: "liam@example.com", PlanId: entity.PlanRef("gone"), BalanceCents: -320},
		{Id: "u_3", Name: "Noah Smith", Email: "noah@example.com"},
	}
	return NewRows(users, plans)
}

func TestNewRows(t *testing.T) {
	rows := sampleRows()
	require.Len(t, rows, 3)

	assert.Equal(t, "Green Plus", rows[0].PlanName)
	assert.Equal(t, "12.45", rows[0].Balance)
	assert.Equal(t, NoPlan, rows[1].PlanName)
	assert.Equal(t, "-3.20", rows[1].Balance)
	assert.Equal(t, NoPlan, rows[2].PlanName)
	assert.Nil(t, rows[2].PlanId)
}

func TestWriteXlsx(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXlsx(&buf, sampleRows()))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := file.Sheet[reportName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "Customer", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Ava Patel", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Green Plus", sheet.Rows[1].Cells[2].String())
	assert.Equal(t, "-3.20", sheet.Rows[2].Cells[3].String())
}
