package db

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.Exec(`CREATE TABLE refs (booking_id INTEGER NOT NULL UNIQUE)`).Error)

	require.NoError(t, gdb.Exec(`INSERT INTO refs (booking_id) VALUES (1)`).Error)
	dupErr := gdb.Exec(`INSERT INTO refs (booking_id) VALUES (1)`).Error
	require.Error(t, dupErr)
	assert.True(t, IsDuplicateKeyErr(dupErr))

	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(errors.New(`duplicate key value violates unique constraint "ux_expert_earnings_booking"`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062 (23000): Duplicate entry '1' for key 'ux_expert_earnings_booking'")))

	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}
