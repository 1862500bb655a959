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

func TestBallotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ballots")).
		WithArgs(sqlmock.AnyArg(), "event-1", "voter-42", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ballot := &models.Ballot{
		EventID:  "event-1",
		VoterRef: "voter-42",
		Weights:  pq.Int64Array{3, 0, 1, 0, 0, 0, 0, 0, 0},
	}
	require.NoError(t, repo.Create(context.Background(), ballot))
	assert.NotEmpty(t, ballot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBallotRepositoryListByEvent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "event_id", "voter_ref", "weights", "created_at"}).
		AddRow("ballot-1", "event-1", "voter-1", pq.Int64Array{1, 2, 0}, time.Now()).
		AddRow("ballot-2", "event-1", "voter-2", pq.Int64Array{0, 0, 3}, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM ballots WHERE event_id = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("event-1").
		WillReturnRows(rows)

	ballots, err := repo.ListByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, ballots, 2)
	assert.Equal(t, pq.Int64Array{1, 2, 0}, ballots[0].Weights)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBallotRepositoryCountByEvent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ballots WHERE event_id = $1")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	total, err := repo.CountByEvent(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
