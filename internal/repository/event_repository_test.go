package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/confplan-api/internal/models"
)

func TestEventRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(sqlmock.AnyArg(), "DevConf 2026", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.Event{
		Name:           "DevConf 2026",
		TimeSlots:      pq.StringArray{"saturdayMorning", "saturdayEvening", "sundayMorning"},
		RoomCapacities: pq.Int64Array{500, 100, 80},
		Presentations:  pq.StringArray{"Intro to Python", "Java in practice", "Golang: the basics"},
	}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "time_slots", "room_capacities", "presentations", "created_at", "updated_at"}).
		AddRow("event-1", "DevConf 2026", pq.StringArray{"saturdayMorning"}, pq.Int64Array{500}, pq.StringArray{"Intro to Python"}, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs("event-1").
		WillReturnRows(rows)

	event, err := repo.FindByID(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, "DevConf 2026", event.Name)
	assert.Equal(t, pq.Int64Array{500}, event.RoomCapacities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, repo.Delete(context.Background(), "missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
