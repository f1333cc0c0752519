package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunMigrationsAppliesBundledSQL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS staff_members").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, RunMigrations(context.Background(), mock, zaptest.NewLogger(t)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsWrapsFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err = RunMigrations(context.Background(), mock, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migration migrations/0001_init.sql")
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zaptest.NewLogger(t)))
}
