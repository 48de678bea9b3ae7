package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "stats.json"), nil)
}

func TestAppend_SingleValueAndArray(t *testing.T) {
	s := newTestStore(t)

	n, err := s.Append([]byte(`{"score": 120, "ante": 3}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Append([]byte(`[{"score": 1}, {"score": 2}, 7]`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	values, err := s.All()
	require.NoError(t, err)
	require.Len(t, values, 4)
	assert.JSONEq(t, `{"score": 120, "ante": 3}`, string(values[0]))
	assert.JSONEq(t, `7`, string(values[3]))
}

func TestAppend_InvalidJSON(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append([]byte(`{"score":`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = s.Append(nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "rejected payloads must not create the file")
}

func TestAppend_CorruptFileStartsFresh(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0644))

	_, err := s.Append([]byte(`"hello"`))
	require.NoError(t, err)

	values, err := s.All()
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, `"hello"`, string(values[0]))
}

func TestAll_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	values, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestAppend_Concurrent(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload, _ := json.Marshal(map[string]int{"run": i})
			_, err := s.Append(payload)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	values, err := s.All()
	require.NoError(t, err)
	assert.Len(t, values, 20)
}
