package dto

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

func TestDateAcceptsDayAndRFC3339(t *testing.T) {
	var body struct {
		A Date  `json:"a"`
		B Date  `json:"b"`
		C *Date `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2024-03-01","b":"2024-03-02T10:00:00Z","c":null}`), &body))
	assert.Equal(t, 1, body.A.Day())
	assert.Equal(t, 2, body.B.Day())
	assert.Nil(t, body.C.TimePtr())

	out, err := json.Marshal(body.A)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-03-01"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"01/03/2024"}`), &body))
}

func TestMoneyAndQuantityRules(t *testing.T) {
	RegisterValidators()

	ok := CreateEmployeeRequest{Name: "Ana", DailyWage: types.NewMoney(120)}
	assert.NoError(t, binding.Validator.ValidateStruct(ok))

	zeroWage := CreateEmployeeRequest{Name: "Ana", DailyWage: types.Zero()}
	assert.Error(t, binding.Validator.ValidateStruct(zeroWage))

	consume := ConsumeStockRequest{Quantity: 0}
	assert.Error(t, binding.Validator.ValidateStruct(consume))

	site := CreateSiteRequest{Name: "Yard", Budget: types.Zero()}
	assert.NoError(t, binding.Validator.ValidateStruct(site), "zero budget is allowed")
}

func TestNewListNeverNull(t *testing.T) {
	out, err := json.Marshal(NewList[id.ID](nil, PageQuery{Limit: 10}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"limit":10,"offset":0}`, string(out))
}
