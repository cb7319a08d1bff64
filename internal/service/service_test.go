package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/lock"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

const testPassword = "password123"

// testEnv is a full server on a temp database, reached through the Connect clients.
type testEnv struct {
	store    storage.Store
	registry *prometheus.Registry
	auth     apiconnect.AuthServiceClient
	groups   apiconnect.GroupServiceClient
	expenses apiconnect.ExpenseServiceClient
}

type testUser struct {
	ID    string
	Email string
	Token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	ledger := NewLedger(store, lock.NewLocal(), m, logger)

	authenticator := auth.NewPasswordAuthenticatorWithCost(store, bcrypt.MinCost)
	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(logger),
		middleware.RequireAuth(jwtManager, apiconnect.PublicProcedures),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, logger), interceptors))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store, ledger, logger), interceptors))
	mux.Handle(apiconnect.NewExpenseServiceHandler(
		NewExpenseService(store, ledger, calculator.StrategyFirstSeen, m, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:    store,
		registry: registry,
		auth:     apiconnect.NewAuthServiceClient(server.Client(), server.URL),
		groups:   apiconnect.NewGroupServiceClient(server.Client(), server.URL),
		expenses: apiconnect.NewExpenseServiceClient(server.Client(), server.URL),
	}
}

// register creates an account named name with an example.com address.
func (e *testEnv) register(t *testing.T, name string) testUser {
	t.Helper()
	email := strings.ToLower(name) + "@example.com"
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		Password:    testPassword,
		DisplayName: name,
	}))
	require.NoError(t, err)
	return testUser{ID: resp.Msg.User.Id, Email: email, Token: resp.Msg.Token}
}

// newGroup creates a group owned by owner and adds members: registered users
// by email, plain strings as guests.
func (e *testEnv) newGroup(t *testing.T, owner testUser, name string, members ...any) *api.Group {
	t.Helper()
	ctx := context.Background()

	resp, err := e.groups.CreateGroup(ctx, as(owner, &api.CreateGroupRequest{Name: name}))
	require.NoError(t, err)
	group := resp.Msg.Group

	for _, m := range members {
		req := &api.AddParticipantRequest{GroupId: group.Id}
		switch v := m.(type) {
		case testUser:
			req.Email = v.Email
		case string:
			req.Name = v
		default:
			t.Fatalf("unsupported member %T", m)
		}
		added, err := e.groups.AddParticipant(ctx, as(owner, req))
		require.NoError(t, err)
		group = added.Msg.Group
	}
	return group
}

// as builds a request authenticated as u.
func as[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if u.Token != "" {
		req.Header().Set("Authorization", "Bearer "+u.Token)
	}
	return req
}

func participantID(t *testing.T, group *api.Group, name string) string {
	t.Helper()
	for _, p := range group.Participants {
		if p.Name == name {
			return p.Id
		}
	}
	t.Fatalf("participant %q not in group %s", name, group.Id)
	return ""
}

// debts flattens balances to "debtor->creditor" => amount.
func debts(balances []*api.Balance) map[string]float64 {
	out := make(map[string]float64, len(balances))
	for _, b := range balances {
		out[b.DebtorName+"->"+b.CreditorName] = b.Amount
	}
	return out
}

func requireCode(t *testing.T, want connect.Code, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, connect.CodeOf(err), "error: %v", err)
}
