package integration

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	status int
	code   string
}

// race fires n identical requests at once and collects the results.
func (a *testApp) race(t *testing.T, n int, method, path, token string) []outcome {
	t.Helper()

	results := make([]outcome, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			status, env := a.call(t, method, path, token, nil)
			results[i] = outcome{status: status, code: env.ErrorCode}
		}(i)
	}
	close(start)
	wg.Wait()
	return results
}

func countOK(results []outcome) int {
	n := 0
	for _, r := range results {
		if r.status == http.StatusOK {
			n++
		}
	}
	return n
}

// TestConcurrentScan verifies a session unlocks exactly once when the scan
// is triggered twice in parallel.
func TestConcurrentScan(t *testing.T) {
	app := newTestApp(t, appDelays{scan: 100 * time.Millisecond})

	status, env := app.call(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, status)
	s := decode[sessionBody](t, env)

	results := app.race(t, 2, http.MethodPost, "/api/v1/sessions/"+s.ID+"/scan", "")

	assert.Equal(t, 1, countOK(results))
	for _, r := range results {
		if r.status == http.StatusOK {
			continue
		}
		assert.Equal(t, http.StatusConflict, r.status)
		assert.Contains(t, []string{"SESSION_002", "SESSION_003"}, r.code)
	}
}

// TestConcurrentFinalize verifies a double-submitted finalize credits the
// sync amount and vaults a token only once.
func TestConcurrentFinalize(t *testing.T) {
	app := newTestApp(t, appDelays{finalize: 100 * time.Millisecond})
	_, token := app.openUnlocked(t)
	flowID := app.linkTo(t, token, "Santander")

	results := app.race(t, 2, http.MethodPost, "/api/v1/link/flows/"+flowID+"/finalize", token)

	assert.Equal(t, 1, countOK(results))
	for _, r := range results {
		if r.status == http.StatusOK {
			continue
		}
		assert.Equal(t, http.StatusConflict, r.status)
		assert.Contains(t, []string{"LINK_002", "LINK_004"}, r.code)
	}

	status, env := app.call(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	dash := decode[dashboardBody](t, env)
	assert.Equal(t, "1450000.00", dash.Wallet.Balance)
	assert.Len(t, dash.Transactions, 3)
}

// TestConcurrentSessions verifies parallel visitors each get their own
// wallet and history.
func TestConcurrentSessions(t *testing.T) {
	app := newTestApp(t, appDelays{})

	const visitors = 8
	tokens := make([]string, visitors)
	var wg sync.WaitGroup
	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, env := app.call(t, http.MethodPost, "/api/v1/sessions", "", nil)
			if status != http.StatusCreated {
				return
			}
			s := decode[sessionBody](t, env)
			status, env = app.call(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/scan", "", nil)
			if status != http.StatusOK {
				return
			}
			tokens[i] = decode[scanBody](t, env).Token
		}(i)
	}
	wg.Wait()

	for i, token := range tokens {
		require.NotEmpty(t, token, "visitor %d was not unlocked", i)
		status, env := app.call(t, http.MethodGet, "/api/v1/dashboard", token, nil)
		require.Equal(t, http.StatusOK, status)
		dash := decode[dashboardBody](t, env)
		assert.Equal(t, "1000000.00", dash.Wallet.Balance)
		assert.Len(t, dash.Transactions, 2)
	}
}
