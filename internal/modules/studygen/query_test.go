package studygen

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
)

func TestQueryGetStudy(t *testing.T) {
	f := newPipelineFixture(t)
	base := happyGenerator(t)
	// Unit 2 is a 3-day deep dive; its second session never validates.
	gen := newFakeGenerator(func(ctx context.Context, schemaName string, user string) (string, error) {
		if schemaName == schemaSession && unitPrompt(user, 2) && sessionNumber(user) == 2 {
			return "{}", nil
		}
		return base(ctx, schemaName, user)
	})
	res, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	require.NoError(t, err)
	require.True(t, res.Partial)

	q := NewQuery(f.studies, f.units, f.sessions, f.runs)
	view, err := q.GetStudy(context.Background(), *res.StudyID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, res.Title, view.Study.Title)
	require.Len(t, view.Units, 10)
	assert.Len(t, view.Units[2].Sessions, 2)
	assert.Equal(t, Completeness{
		UnitsPlanned:      10,
		UnitsPersisted:    10,
		SessionsPlanned:   15,
		SessionsPersisted: 14,
		Partial:           true,
	}, view.Completeness)
	require.NotNil(t, view.LatestRun)
	assert.Equal(t, res.RunID, view.LatestRun.ID)

	_, err = q.GetStudy(context.Background(), *res.StudyID, uuid.New())
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	run, err := q.GetRun(context.Background(), res.RunID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, string(StateCompleted), run.State)
	_, err = q.GetRun(context.Background(), uuid.New(), f.userID)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}
