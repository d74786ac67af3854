package services

import (
	"fmt"
	"strings"

	"github.com/ecowell/eco-engine-go/internal/domain/user"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/email"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/security"
	"github.com/ecowell/eco-engine-go/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult carries the authenticated profile and its bearer token.
type AuthResult struct {
	Profile *user.Profile `json:"profile"`
	Token   string        `json:"token"`
}

// AuthService converts guests into leads and authenticates returning leads.
// Conversion is the terminal exit of the trigger machine: on success the
// guest's sessions stop being evaluated.
type AuthService struct {
	leads   user.LeadRepository
	guests  user.GuestRepository
	trigger *TriggerService
	mailer  email.Service
	clock   scheduler.Clock
	logger  *logging.ChanneledLogger
	perf    *performance.Tracker
}

// NewAuthService creates the auth service. mailer may be nil when no email
// provider is configured.
func NewAuthService(
	leads user.LeadRepository,
	guests user.GuestRepository,
	trigger *TriggerService,
	mailer email.Service,
	clock scheduler.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *AuthService {
	return &AuthService{
		leads:   leads,
		guests:  guests,
		trigger: trigger,
		mailer:  mailer,
		clock:   clock,
		logger:  logger,
		perf:    perf,
	}
}

// Register creates a lead from a converting guest, links the guest row, and
// terminates trigger evaluation for that guest.
func (s *AuthService) Register(firstname, emailAddr, password, guestID string) (*AuthResult, error) {
	marker := s.perf.StartOperation("auth_register")
	defer marker.Complete()

	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if firstname == "" || emailAddr == "" || len(password) < 8 {
		return nil, fmt.Errorf("first name, email, and a password of at least 8 characters are required")
	}

	existing, err := s.leads.FindByEmail(emailAddr)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("registration lookup failed: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	lead := &user.Lead{
		ID:           security.GenerateULID(),
		FirstName:    firstname,
		Email:        emailAddr,
		PasswordHash: string(hash),
		Tier:         "free",
		CreatedAt:    now,
		Changed:      now,
	}
	if err := s.leads.Store(lead); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	s.linkGuest(guestID, lead.ID)
	s.trigger.Authenticate(guestID)

	if s.mailer != nil {
		go func() {
			if err := s.mailer.SendWelcomeEmail(lead.Email, lead.FirstName, lead.Tier); err != nil {
				s.logger.Auth().Warn("Welcome email failed", "leadId", lead.ID, "error", err.Error())
			}
		}()
	}

	result, err := s.buildResult(lead, guestID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	s.logger.LogAuthOperation("register", lead.ID, true, map[string]any{"guestId": guestID})
	marker.SetSuccess(true)
	return result, nil
}

// Login authenticates a returning lead, re-links the current guest id, and
// terminates trigger evaluation for that guest.
func (s *AuthService) Login(emailAddr, password, guestID string) (*AuthResult, error) {
	marker := s.perf.StartOperation("auth_login")
	defer marker.Complete()

	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	lead, err := s.leads.ValidateCredentials(emailAddr, password)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if lead == nil {
		s.logger.LogAuthOperation("login", emailAddr, false, nil)
		return nil, fmt.Errorf("invalid email or password")
	}

	s.linkGuest(guestID, lead.ID)
	s.trigger.Authenticate(guestID)

	result, err := s.buildResult(lead, guestID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	s.logger.LogAuthOperation("login", lead.ID, true, map[string]any{"guestId": guestID})
	marker.SetSuccess(true)
	return result, nil
}

// ProfileFromToken validates a bearer token and returns the embedded profile.
func (s *AuthService) ProfileFromToken(token string) (*user.Profile, error) {
	claims, err := security.ValidateJWT(token, config.JWTSecret)
	if err != nil {
		return nil, err
	}
	profile := security.GetProfileFromClaims(claims)
	if profile == nil {
		return nil, fmt.Errorf("token carries no profile")
	}
	return profile, nil
}

func (s *AuthService) buildResult(lead *user.Lead, guestID string) (*AuthResult, error) {
	profile := &user.Profile{
		GuestID:   guestID,
		LeadID:    lead.ID,
		Firstname: lead.FirstName,
		Email:     lead.Email,
		Tier:      lead.Tier,
	}
	token, err := security.GenerateProfileToken(profile, config.JWTSecret, config.TokenLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Profile: profile, Token: token}, nil
}

// linkGuest attaches the guest row to the lead. Link failures are logged,
// not fatal: the account exists either way.
func (s *AuthService) linkGuest(guestID, leadID string) {
	if guestID == "" {
		return
	}
	if err := s.guests.LinkToLead(guestID, leadID); err != nil {
		s.logger.Auth().Warn("Guest link failed", "guestId", guestID, "leadId", leadID, "error", err.Error())
	}
}
