package notify

import (
	"errors"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recorder) send(title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, title+": "+message)
	return r.err
}

func TestOnce_SendsEachKeyOnce(t *testing.T) {
	rec := &recorder{}
	once := NewOnce(rec.send)

	sent, err := once.Notify("permission", "ContextCollector", "grant access")
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = once.Notify("permission", "ContextCollector", "grant access")
	require.NoError(t, err)
	assert.False(t, sent)

	sent, _ = once.Notify("hook-failed", "ContextCollector", "hook failed")
	assert.True(t, sent)

	assert.Equal(t, []string{
		"ContextCollector: grant access",
		"ContextCollector: hook failed",
	}, rec.calls)
	assert.True(t, once.Sent("permission"))
	assert.False(t, once.Sent("other"))
}

func TestOnce_FailureConsumesKey(t *testing.T) {
	rec := &recorder{err: errors.New("no daemon")}
	once := NewOnce(rec.send)

	sent, err := once.Notify("k", "t", "m")
	assert.True(t, sent)
	assert.Error(t, err)

	sent, err = once.Notify("k", "t", "m")
	assert.False(t, sent)
	assert.NoError(t, err)
	assert.Len(t, rec.calls, 1)
}

func TestOnce_Concurrent(t *testing.T) {
	rec := &recorder{}
	once := NewOnce(rec.send)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = once.Notify("same", "t", "m")
		}()
	}
	wg.Wait()
	assert.Len(t, rec.calls, 1)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"say \"hi\" \\ bye"`, appleScriptQuote(`say "hi" \ bye`))
	assert.Equal(t, `'it''s'`, powerShellQuote("it's"))
}

func TestRunFirst(t *testing.T) {
	err := runFirst(exec.Command("contextcollector-no-such-binary"))
	assert.Error(t, err)
	assert.NoError(t, runFirst())
}
