package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

type stamped struct {
	CreatedAt time.Time `db:"created_at"`
}

type line struct {
	stamped
	ID       id.ID          `db:"id"`
	Name     string         `db:"name"`
	Quantity types.Quantity `db:"quantity"`
	Scratch  string         `db:"-"`
	Untagged string
}

func TestColumnsFlattensEmbedded(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "quantity", "created_at"}, Columns[line]())
	assert.Equal(t, Columns[line](), Columns[*line]())
}

func TestRowUsesTags(t *testing.T) {
	now := time.Now().UTC()
	l := &line{
		stamped:  stamped{CreatedAt: now},
		ID:       id.New(),
		Name:     "cement",
		Quantity: types.NewQuantity(3),
		Scratch:  "ignored",
	}

	row := Row(l)
	assert.Len(t, row, 4)
	assert.Equal(t, l.ID, row["id"])
	assert.Equal(t, "cement", row["name"])
	assert.Equal(t, types.NewQuantity(3), row["quantity"])
	assert.Equal(t, now, row["created_at"])
	assert.Nil(t, Row(42))
}
