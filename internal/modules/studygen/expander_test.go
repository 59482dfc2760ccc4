package studygen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

func threeDayUnit() UnitOutline {
	return UnitOutline{
		Index:           2,
		Type:            UnitTypeCharacter,
		Scope:           ScopeDeepDive3Days,
		Title:           "Unit 2",
		PrimaryPassages: []string{"1 Kings 19"},
	}
}

// scriptedSessions fails session n (1-based) on the listed attempts.
func scriptedSessions(t *testing.T, failOn map[int][]int) generateFunc {
	var mu sync.Mutex
	attempts := map[int]int{}
	return func(_ context.Context, _ string, user string) (string, error) {
		n := 0
		for i := 1; i <= 3; i++ {
			if strings.Contains(user, fmt.Sprintf("session %d of", i)) {
				n = i
			}
		}
		mu.Lock()
		attempts[n]++
		a := attempts[n]
		mu.Unlock()
		for _, f := range failOn[n] {
			if f == a {
				return "", fmt.Errorf("session %d attempt %d failed", n, a)
			}
		}
		return sessionJSON(t, user), nil
	}
}

func TestExpandAllSessions(t *testing.T) {
	gen := newFakeGenerator(scriptedSessions(t, nil))
	eu, err := NewExpander(logger.NewNop()).Expand(context.Background(), gen, testPrefs, threeDayUnit())
	require.NoError(t, err)
	assert.Equal(t, 1, eu.Attempts)
	assert.Empty(t, eu.Failed)
	require.Len(t, eu.Sessions, 3)
	for i, s := range eu.Sessions {
		assert.Equal(t, i, s.SessionIndex)
		assert.Equal(t, fmt.Sprintf("Session %d", i+1), s.Title)
	}
	assert.Equal(t, 3, gen.Calls(schemaSession))
}

func TestExpandOneFailureDoesNotRetry(t *testing.T) {
	gen := newFakeGenerator(scriptedSessions(t, map[int][]int{2: {1}}))
	eu, err := NewExpander(logger.NewNop()).Expand(context.Background(), gen, testPrefs, threeDayUnit())
	require.NoError(t, err)
	assert.Equal(t, 1, eu.Attempts)
	assert.Equal(t, []int{1}, eu.Failed)
	require.Len(t, eu.Sessions, 2)
	assert.Equal(t, 0, eu.Sessions[0].SessionIndex)
	assert.Equal(t, 2, eu.Sessions[1].SessionIndex)
	assert.Equal(t, 3, gen.Calls(schemaSession))
}

// Sessions 1 and 2 fail first; the retry recovers 1 but loses 3. Each index keeps
// whichever attempt validated.
func TestExpandRetriesAndMerges(t *testing.T) {
	gen := newFakeGenerator(scriptedSessions(t, map[int][]int{
		1: {1},
		2: {1, 2},
		3: {2},
	}))
	eu, err := NewExpander(logger.NewNop()).Expand(context.Background(), gen, testPrefs, threeDayUnit())
	require.NoError(t, err)
	assert.Equal(t, 2, eu.Attempts)
	assert.Equal(t, 6, gen.Calls(schemaSession))
	assert.Equal(t, []int{1}, eu.Failed)
	require.Len(t, eu.Sessions, 2)
	assert.Equal(t, 0, eu.Sessions[0].SessionIndex)
	assert.Equal(t, 2, eu.Sessions[1].SessionIndex)
}

func TestExpandAllFail(t *testing.T) {
	gen := newFakeGenerator(func(context.Context, string, string) (string, error) {
		return "", errors.New("rate limited")
	})
	eu, err := NewExpander(logger.NewNop()).Expand(context.Background(), gen, testPrefs, threeDayUnit())
	var uge *UnitGenerationError
	require.ErrorAs(t, err, &uge)
	assert.Equal(t, 2, uge.UnitIndex)
	assert.Equal(t, 2, uge.Attempts)
	assert.Equal(t, []int{0, 1, 2}, eu.Failed)
	assert.Equal(t, 6, gen.Calls(schemaSession))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestExpandUnknownScope(t *testing.T) {
	gen := newFakeGenerator(scriptedSessions(t, nil))
	u := threeDayUnit()
	u.Scope = "weekend"
	_, err := NewExpander(logger.NewNop()).Expand(context.Background(), gen, testPrefs, u)
	var uge *UnitGenerationError
	require.ErrorAs(t, err, &uge)
	assert.Equal(t, 0, gen.Calls(schemaSession))
}

func TestExpandCanceledSkipsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := newFakeGenerator(func(context.Context, string, string) (string, error) {
		cancel()
		return "", context.Canceled
	})
	_, err := NewExpander(logger.NewNop()).Expand(ctx, gen, testPrefs, threeDayUnit())
	require.Error(t, err)
	assert.Equal(t, 3, gen.Calls(schemaSession))
}
