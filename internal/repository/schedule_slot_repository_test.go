package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/confplan-api/internal/models"
)

func TestScheduleSlotRepositoryUpsertBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WithArgs(sqlmock.AnyArg(), "sched-1", 0, 0, 500, "saturdayMorning", 5, "Sense8", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WithArgs(sqlmock.AnyArg(), "sched-1", 0, 1, 500, "saturdayEvening", 0, "Intro to Python", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slots := []models.ScheduleSlot{
		{
			ScheduleID:        "sched-1",
			RoomIndex:         0,
			SlotIndex:         0,
			RoomCapacity:      500,
			SlotLabel:         "saturdayMorning",
			PresentationIndex: 5,
			PresentationTitle: "Sense8",
		},
		{
			ScheduleID:        "sched-1",
			RoomIndex:         0,
			SlotIndex:         1,
			RoomCapacity:      500,
			SlotLabel:         "saturdayEvening",
			PresentationIndex: 0,
			PresentationTitle: "Intro to Python",
		},
	}

	require.NoError(t, repo.UpsertBatch(context.Background(), nil, slots))
	assert.NotEmpty(t, slots[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSlotRepositoryUpsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	require.NoError(t, repo.UpsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSlotRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "room_index", "slot_index", "room_capacity", "slot_label", "presentation_index", "presentation_title", "created_at"}).
		AddRow("slot-1", "sched-1", 0, 0, 500, "saturdayMorning", 5, "Sense8", time.Now()).
		AddRow("slot-2", "sched-1", 0, 1, 500, "saturdayEvening", 0, "Intro to Python", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_slots WHERE schedule_id = $1 ORDER BY room_index ASC, slot_index ASC")).
		WithArgs("sched-1").
		WillReturnRows(rows)

	slots, err := repo.ListBySchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 5, slots[0].PresentationIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}
