package health

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/carelink-api/internal/handler/handlertest"
)

func TestReadyWithDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	r := handlertest.PublicEngine(NewHandler(map[string]Pinger{
		"database": sqlx.NewDb(db, "postgres"),
	}))

	w := handlertest.Do(r, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadyReportsFailingDependency(t *testing.T) {
	r := handlertest.PublicEngine(NewHandler(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}))

	w := handlertest.Do(r, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"DOWN","reason":"redis connection failed"}`, w.Body.String())
}

func TestLive(t *testing.T) {
	r := handlertest.PublicEngine(NewHandler(nil))

	w := handlertest.Do(r, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
