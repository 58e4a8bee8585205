package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"goldpayments/internal/adapter/advisor"
	"goldpayments/internal/adapter/capture"
	httpHandler "goldpayments/internal/adapter/http/handler"
	memStorage "goldpayments/internal/adapter/storage/memory"
	redisStorage "goldpayments/internal/adapter/storage/redis"
	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/internal/service"
	"goldpayments/pkg/logger"
	"goldpayments/pkg/money"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp is the whole service over miniredis and the in-memory ledger,
// driven through its real HTTP surface.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	cipher *service.VaultCipher
}

type appDelays struct {
	scan, step, finalize time.Duration
}

func newTestApp(t *testing.T, delays appDelays) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := zerolog.Nop()
	ttl := time.Hour

	sessions := redisStorage.NewSessionStore(rdb, ttl)
	flows := redisStorage.NewFlowStore(rdb, ttl)
	tokens := redisStorage.NewTokenStore(rdb, ttl)
	locks := redisStorage.NewLockStore(rdb)
	ledger := memStorage.NewLedgerRepo(ttl)

	cipher, err := service.NewVaultCipher("gold-payments-elite-secure-vault-2025", service.CipherAESGCM)
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("integration-secret", time.Hour, "goldpayments-vault")
	formatter, err := money.NewFormatter("es-MX")
	require.NoError(t, err)

	seed := service.WalletSeed{
		Balance:  decimal.RequireFromString("1000000.00"),
		Currency: "MXN",
		Address:  "0xG0LD...88FF",
		Tier:     domain.TierElite,
	}

	sessionSvc := service.NewSessionService(sessions, ledger, locks, capture.NewSimulated(false), tokenSvc, seed, delays.scan, log)
	syncSvc := service.NewSyncService(cipher, tokens, ledger, decimal.RequireFromString("450000.00"), "MXN", log)
	linkSvc := service.NewLinkService(flows, locks, syncSvc,
		[]string{"Chase", "Wells Fargo", "Citibank", "HSBC", "BBVA", "Santander"},
		service.LinkDelays{Step: delays.step, Finalize: delays.finalize}, log)
	adviceSvc := service.NewAdviceService(ledger, advisor.NewOffline(),
		ports.GenerationParams{Model: "gemini-3-flash-preview", Temperature: 0.8, TopP: 0.9}, time.Second, log)
	dashboardSvc := service.NewDashboardService(ledger, sessions, tokens, cipher, formatter, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SessionSvc:     sessionSvc,
		DashboardSvc:   dashboardSvc,
		LinkSvc:        linkSvc,
		AdviceSvc:      adviceSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       service.NewAuditService(nil, logger.Component(log, "audit")),
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, cipher: cipher}
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

func (a *testApp) call(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type sessionBody struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type scanBody struct {
	Session sessionBody `json:"session"`
	Token   string      `json:"token"`
}

type flowBody struct {
	ID          string `json:"id"`
	Step        string `json:"step"`
	Institution string `json:"institution"`
	PublicToken string `json:"public_token"`
}

type txBody struct {
	ID      string `json:"id"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
	Type    string `json:"type"`
}

type dashboardBody struct {
	Wallet struct {
		Balance          string `json:"balance"`
		FormattedBalance string `json:"formatted_balance"`
		Tier             string `json:"tier"`
	} `json:"wallet"`
	Transactions []txBody `json:"transactions"`
	Security     struct {
		Cipher      string `json:"cipher"`
		TokenStored bool   `json:"token_stored"`
	} `json:"security"`
}

// openUnlocked opens a session and scans it, returning the id and token.
func (a *testApp) openUnlocked(t *testing.T) (string, string) {
	t.Helper()
	status, env := a.call(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, status)
	s := decode[sessionBody](t, env)

	status, env = a.call(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/scan", "", nil)
	require.Equal(t, http.StatusOK, status)
	return s.ID, decode[scanBody](t, env).Token
}

// linkTo walks a new flow up to CONFIRMATION.
func (a *testApp) linkTo(t *testing.T, token, institution string) string {
	t.Helper()
	status, env := a.call(t, http.MethodPost, "/api/v1/link/flows", token, nil)
	require.Equal(t, http.StatusCreated, status)
	flow := decode[flowBody](t, env)

	status, _ = a.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/advance", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = a.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/institution", token,
		map[string]string{"institution": institution})
	require.Equal(t, http.StatusOK, status)
	return flow.ID
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t, appDelays{})

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_LockGate(t *testing.T) {
	app := newTestApp(t, appDelays{})

	status, env := app.call(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, status)
	s := decode[sessionBody](t, env)
	assert.Equal(t, "LOCKED", s.State)

	// nothing behind the gate without a token
	status, env = app.call(t, http.MethodGet, "/api/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "SESSION_005", env.ErrorCode)

	status, env = app.call(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/scan", "", nil)
	require.Equal(t, http.StatusOK, status)
	scan := decode[scanBody](t, env)
	assert.Equal(t, "UNLOCKED", scan.Session.State)
	assert.NotEmpty(t, scan.Token)

	// one-way transition
	status, env = app.call(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/scan", "", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SESSION_002", env.ErrorCode)

	status, env = app.call(t, http.MethodGet, "/api/v1/sessions/"+s.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "UNLOCKED", decode[sessionBody](t, env).State)

	status, env = app.call(t, http.MethodGet, "/api/v1/dashboard", scan.Token, nil)
	require.Equal(t, http.StatusOK, status)
	dash := decode[dashboardBody](t, env)
	assert.Equal(t, "1000000.00", dash.Wallet.Balance)
	assert.Equal(t, "Elite", dash.Wallet.Tier)
	require.Len(t, dash.Transactions, 2)
	assert.Equal(t, domain.WelcomeTransactionID, dash.Transactions[0].ID)
	assert.Equal(t, domain.MembershipTxID, dash.Transactions[1].ID)
	assert.Equal(t, "debit", dash.Transactions[1].Type)
	assert.Equal(t, "AES-256", dash.Security.Cipher)
	assert.False(t, dash.Security.TokenStored)
}

func TestIntegration_LinkAndSync(t *testing.T) {
	app := newTestApp(t, appDelays{})
	sessionID, token := app.openUnlocked(t)

	status, env := app.call(t, http.MethodGet, "/api/v1/link/institutions?q=an", token, nil)
	require.Equal(t, http.StatusOK, status)
	insts := decode[struct {
		Items []string `json:"items"`
	}](t, env)
	assert.Equal(t, []string{"Citibank", "Santander"}, insts.Items)

	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows", token, nil)
	require.Equal(t, http.StatusCreated, status)
	flow := decode[flowBody](t, env)
	assert.Equal(t, "INTRO", flow.Step)

	// finalize is only reachable from CONFIRMATION
	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/finalize", token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LINK_002", env.ErrorCode)

	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/advance", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "INSTITUTION", decode[flowBody](t, env).Step)

	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/institution", token,
		map[string]string{"institution": "Banorte"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "LINK_003", env.ErrorCode)

	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/institution", token,
		map[string]string{"institution": "bbva"})
	require.Equal(t, http.StatusOK, status)
	selected := decode[flowBody](t, env)
	assert.Equal(t, "CONFIRMATION", selected.Step)
	assert.Equal(t, "BBVA", selected.Institution)

	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/finalize", token, nil)
	require.Equal(t, http.StatusOK, status)
	final := decode[struct {
		Flow        flowBody `json:"flow"`
		Transaction txBody   `json:"transaction"`
		Notice      string   `json:"notice"`
	}](t, env)
	assert.Equal(t, "COMPLETED", final.Flow.Step)
	assert.True(t, strings.HasPrefix(final.Flow.PublicToken, "public-sandbox-"))
	assert.Equal(t, "Tokens Bancarios Encriptados con AES-256", final.Notice)
	assert.Regexp(t, `^PLAID-SYNC-[A-Z0-9]{9}$`, final.Transaction.ID)
	assert.Equal(t, "450000.00", final.Transaction.Amount)

	// a completed flow cannot be finalized again
	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flow.ID+"/finalize", token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, []string{"LINK_002", "LINK_004"}, env.ErrorCode)

	status, env = app.call(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	dash := decode[dashboardBody](t, env)
	assert.Equal(t, "1450000.00", dash.Wallet.Balance)
	require.Len(t, dash.Transactions, 3)
	assert.Equal(t, final.Transaction.ID, dash.Transactions[0].ID)
	assert.True(t, strings.HasPrefix(dash.Transactions[0].Display, "+"))
	assert.True(t, dash.Security.TokenStored)

	// the vault slot holds {"encrypted","iv"} that opens to an access token
	raw, err := app.redis.Get(domain.TokenStorageKey + ":" + sessionID)
	require.NoError(t, err)
	var payload domain.EncryptedPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	plain, err := app.cipher.Decrypt(&payload)
	require.NoError(t, err)
	assert.Regexp(t, `^access-sandbox-[a-z0-9]{20}$`, plain)

	status, env = app.call(t, http.MethodGet, "/api/v1/transactions?limit=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Items []txBody `json:"items"`
		Count int      `json:"count"`
	}](t, env)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, final.Transaction.ID, list.Items[0].ID)
}

func TestIntegration_CancelHasNoSideEffects(t *testing.T) {
	app := newTestApp(t, appDelays{})
	_, token := app.openUnlocked(t)
	flowID := app.linkTo(t, token, "HSBC")

	status, env := app.call(t, http.MethodPost, "/api/v1/link/flows/"+flowID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CANCELLED", decode[flowBody](t, env).Step)

	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flowID+"/finalize", token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LINK_002", env.ErrorCode)

	status, env = app.call(t, http.MethodPost, "/api/v1/link/flows/"+flowID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = app.call(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	dash := decode[dashboardBody](t, env)
	assert.Equal(t, "1000000.00", dash.Wallet.Balance)
	assert.Len(t, dash.Transactions, 2)
	assert.False(t, dash.Security.TokenStored)
}

func TestIntegration_FlowsAreScopedToTheirSession(t *testing.T) {
	app := newTestApp(t, appDelays{})
	_, owner := app.openUnlocked(t)
	_, other := app.openUnlocked(t)
	flowID := app.linkTo(t, owner, "Chase")

	status, env := app.call(t, http.MethodPost, "/api/v1/link/flows/"+flowID+"/finalize", other, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "LINK_001", env.ErrorCode)
}

func TestIntegration_Advice(t *testing.T) {
	app := newTestApp(t, appDelays{})
	_, token := app.openUnlocked(t)

	status, env := app.call(t, http.MethodPost, "/api/v1/advice", token, nil)
	require.Equal(t, http.StatusOK, status)
	advice := decode[struct {
		Text     string `json:"text"`
		Fallback bool   `json:"fallback"`
		Provider string `json:"provider"`
	}](t, env)
	assert.False(t, advice.Fallback)
	assert.Equal(t, "offline", advice.Provider)
	assert.Contains(t, advice.Text, "Elite")
}
