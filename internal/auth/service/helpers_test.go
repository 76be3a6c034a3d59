package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/haulage/internal/auth/notify"
	"github.com/aussiebroadwan/haulage/internal/auth/revocation"
	"github.com/aussiebroadwan/haulage/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/haulage/pkg/clockx"
	"github.com/aussiebroadwan/haulage/pkg/cryptox"
	"github.com/aussiebroadwan/haulage/pkg/jwtx"
	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

const (
	testPassword = "Str0ng!Pass"
	testIssuer   = "haulage-auth"
)

var testAudience = []string{"haulage"}

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "haulage-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.PasswordResetNotice
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, notice notify.PasswordResetNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) all() []notify.PasswordResetNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.PasswordResetNotice(nil), n.notices...)
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []notify.SecurityAlert
}

func (a *recordingAlerts) Alert(_ context.Context, alert notify.SecurityAlert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
}

func (a *recordingAlerts) kinds() []notify.AlertKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]notify.AlertKind, 0, len(a.alerts))
	for _, al := range a.alerts {
		out = append(out, al.Kind)
	}
	return out
}

type harness struct {
	svc      *SessionService
	store    *sqlite.Store
	backend  *revocation.MemoryBackend
	client   *revocation.Client
	clock    *clockx.Fake
	notifier *recordingNotifier
	alerts   *recordingAlerts
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := clockx.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	secrets, err := jwtx.NewEphemeralSecrets()
	require.NoError(t, err)
	creds, err := jwtx.NewCredentials(jwtx.CredentialOptions{
		Secrets:  secrets,
		Issuer:   testIssuer,
		Audience: testAudience,
		Clock:    clock,
	})
	require.NoError(t, err)

	backend := revocation.NewMemoryBackend(clock)
	client := revocation.NewClient(backend, revocation.Options{Logger: slogx.Discard()})

	h := &harness{
		store:    st,
		backend:  backend,
		client:   client,
		clock:    clock,
		notifier: &recordingNotifier{},
		alerts:   &recordingAlerts{},
	}
	h.svc = &SessionService{
		Store:       st,
		Credentials: creds,
		Revocation:  client,
		Guard: &AttemptGuard{
			Attempts:    st.LoginAttempts(),
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			Clock:       clock,
			Timeout:     time.Second,
		},
		Notifier:      h.notifier,
		Alerts:        h.alerts,
		Clock:         clock,
		VerifyTimeout: 10 * time.Second,
	}
	t.Cleanup(h.svc.Wait)
	return h
}

func (h *harness) register(t *testing.T, email string) *Session {
	t.Helper()
	sess, err := h.svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  testPassword,
		Role:      "buyer",
		FirstName: "Ana",
		LastName:  "Silva",
	})
	require.NoError(t, err)
	return sess
}

func (h *harness) login(email, password string) (*Session, error) {
	return h.svc.Login(context.Background(), LoginInput{
		Email:      email,
		Password:   password,
		SourceAddr: "198.51.100.4",
	})
}

// resetTokenFor runs ForgotPassword and returns the token handed to the
// notifier, or "" when none was issued.
func (h *harness) resetTokenFor(t *testing.T, email string) string {
	t.Helper()
	before := len(h.notifier.all())
	require.NoError(t, h.svc.ForgotPassword(context.Background(), email))
	h.svc.Wait()
	notices := h.notifier.all()
	if len(notices) == before {
		return ""
	}
	return notices[len(notices)-1].Token
}
