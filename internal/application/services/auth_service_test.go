package services

import (
	"sync"
	"testing"

	"github.com/ecowell/eco-engine-go/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
)

// mockLeadRepo keeps leads in memory, keyed by email.
type mockLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*user.Lead
}

func newMockLeadRepo() *mockLeadRepo {
	return &mockLeadRepo{leads: make(map[string]*user.Lead)}
}

func (r *mockLeadRepo) FindByID(id string) (*user.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lead := range r.leads {
		if lead.ID == id {
			return lead, nil
		}
	}
	return nil, nil
}

func (r *mockLeadRepo) FindByEmail(email string) (*user.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leads[email], nil
}

func (r *mockLeadRepo) Store(lead *user.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[lead.Email] = lead
	return nil
}

func (r *mockLeadRepo) Update(lead *user.Lead) error {
	return r.Store(lead)
}

func (r *mockLeadRepo) ValidateCredentials(email, password string) (*user.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, found := r.leads[email]
	if !found {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(lead.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return lead, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockLeadRepo, *mockGuestRepo, *triggerFixture) {
	t.Helper()
	logger := testLogger(t)
	tf := newTriggerFixture(t)
	leads := newMockLeadRepo()
	guests := newMockGuestRepo()
	svc := NewAuthService(leads, guests, tf.svc, nil, tf.clock, logger, testTracker())
	return svc, leads, guests, tf
}

const testGuestID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"

func TestRegisterConvertsGuest(t *testing.T) {
	svc, leads, guests, tf := newAuthFixture(t)
	tf.addSession("sess-1", testGuestID)
	if err := guests.Create(&user.Guest{ID: testGuestID}); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Register("Ada", "Ada@Example.com ", "correct horse", testGuestID)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("registration must issue a token")
	}
	if result.Profile.Tier != "free" {
		t.Fatalf("new lead tier = %q, want free", result.Profile.Tier)
	}
	if result.Profile.Email != "ada@example.com" {
		t.Fatalf("email must be normalized, got %q", result.Profile.Email)
	}

	// The lead exists with a hashed (not plaintext) password.
	lead, _ := leads.FindByEmail("ada@example.com")
	if lead == nil {
		t.Fatal("lead not stored")
	}
	if lead.PasswordHash == "correct horse" || lead.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	// The guest row is linked and the trigger machine is terminal.
	if guests.linked[testGuestID] != lead.ID {
		t.Fatal("guest not linked to the new lead")
	}
	status, err := tf.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if !status.Authenticated {
		t.Fatal("conversion must terminate the trigger machine")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	cases := []struct {
		name      string
		firstname string
		email     string
		password  string
	}{
		{"missing name", "", "a@example.com", "long enough"},
		{"missing email", "Ada", "", "long enough"},
		{"short password", "Ada", "a@example.com", "short"},
	}
	for _, tc := range cases {
		if _, err := svc.Register(tc.firstname, tc.email, tc.password, testGuestID); err == nil {
			t.Errorf("%s: registration must fail", tc.name)
		}
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _, tf := newAuthFixture(t)
	tf.addSession("sess-1", testGuestID)

	if _, err := svc.Register("Ada", "ada@example.com", "correct horse", testGuestID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register("Other", "ADA@example.com", "another pass", testGuestID); err == nil {
		t.Fatal("duplicate email must be rejected")
	}
}

func TestLoginWithValidCredentials(t *testing.T) {
	svc, _, guests, tf := newAuthFixture(t)
	tf.addSession("sess-1", testGuestID)

	if _, err := svc.Register("Ada", "ada@example.com", "correct horse", testGuestID); err != nil {
		t.Fatal(err)
	}

	// A later visit under a fresh guest id.
	const laterGuest = "0f47ac10-58cc-4372-a567-0e02b2c3d470"
	tf.addSession("sess-2", laterGuest)

	result, err := svc.Login("ada@example.com", "correct horse", laterGuest)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Profile.Firstname != "Ada" {
		t.Fatalf("profile = %+v", result.Profile)
	}
	if guests.linked[laterGuest] != result.Profile.LeadID {
		t.Fatal("login must re-link the current guest id")
	}

	status, err := tf.svc.Status("sess-2")
	if err != nil {
		t.Fatal(err)
	}
	if !status.Authenticated {
		t.Fatal("login must terminate the trigger machine for the guest")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _, tf := newAuthFixture(t)
	tf.addSession("sess-1", testGuestID)

	if _, err := svc.Register("Ada", "ada@example.com", "correct horse", testGuestID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login("ada@example.com", "wrong password", testGuestID); err == nil {
		t.Fatal("wrong password must be rejected")
	}
	if _, err := svc.Login("nobody@example.com", "correct horse", testGuestID); err == nil {
		t.Fatal("unknown email must be rejected")
	}
}

func TestProfileFromTokenRoundTrip(t *testing.T) {
	svc, _, _, tf := newAuthFixture(t)
	tf.addSession("sess-1", testGuestID)

	result, err := svc.Register("Ada", "ada@example.com", "correct horse", testGuestID)
	if err != nil {
		t.Fatal(err)
	}

	profile, err := svc.ProfileFromToken(result.Token)
	if err != nil {
		t.Fatalf("token did not validate: %v", err)
	}
	if *profile != *result.Profile {
		t.Fatalf("decoded %+v, want %+v", profile, result.Profile)
	}

	if _, err := svc.ProfileFromToken("garbage"); err == nil {
		t.Fatal("garbage token must be rejected")
	}
}
