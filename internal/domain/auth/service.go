package auth

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dosehub/dosehub/internal/domain/account"
	"github.com/dosehub/dosehub/internal/domain/identity"
	"github.com/dosehub/dosehub/internal/platform/blobstore"
	"github.com/dosehub/dosehub/internal/platform/email"
	"github.com/dosehub/dosehub/internal/platform/googleauth"
	"github.com/dosehub/dosehub/internal/platform/httperr"
	"github.com/dosehub/dosehub/internal/platform/metrics"
	"github.com/dosehub/dosehub/internal/platform/token"
)

// Profiles is the slice of the account service the auth flows need.
type Profiles interface {
	EnsureProfile(ctx context.Context, userID int64) (*account.Profile, error)
	SaveProfile(ctx context.Context, p *account.Profile) error
}

// Config carries the durations and defaults the flows depend on.
type Config struct {
	AccessTokenTTL   time.Duration
	RegistrationTTL  time.Duration
	RefreshTokenTTL  time.Duration
	ConfirmationTTL  time.Duration
	CodeResendDelay  time.Duration
	PasswordResetTTL time.Duration
	DefaultAvatarURL string
}

type Service struct {
	users    identity.UserRepository
	refresh  identity.RefreshTokenRepository
	profiles Profiles
	tokens   *token.Service
	mailer   email.Sender
	google   googleauth.Verifier
	blobs    blobstore.Store
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	cfg      Config

	now func() time.Time
}

func NewService(
	users identity.UserRepository,
	refresh identity.RefreshTokenRepository,
	profiles Profiles,
	tokens *token.Service,
	mailer email.Sender,
	google googleauth.Verifier,
	blobs blobstore.Store,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg Config,
) *Service {
	return &Service{
		users:    users,
		refresh:  refresh,
		profiles: profiles,
		tokens:   tokens,
		mailer:   mailer,
		google:   google,
		blobs:    blobs,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *Service) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(result).Inc()
	}
}

func (s *Service) countRegistration(step string) {
	if s.metrics != nil {
		s.metrics.Registrations.WithLabelValues(step).Inc()
	}
}

func (s *Service) countEmail(kind, result string) {
	if s.metrics != nil {
		s.metrics.EmailsSent.WithLabelValues(kind, result).Inc()
	}
}

func (s *Service) countRefresh(result string) {
	if s.metrics != nil {
		s.metrics.TokenRefreshes.WithLabelValues(result).Inc()
	}
}

// RegistrationStep1 claims the email/username pair and sets the password.
// An unconfirmed account holding either identifier is overwritten in place
// so an abandoned registration never blocks a retry; a confirmed one is a
// hard conflict.
func (s *Service) RegistrationStep1(ctx context.Context, req RegistrationStep1Request) (*RegistrationStep1Result, error) {
	var fields []httperr.FieldError
	fields = append(fields, validateEmail(req.Email)...)
	fields = append(fields, validateUsername(req.Username)...)
	fields = append(fields, validatePassword(req.Password)...)
	fields = append(fields, validatePasswordConfirmation(req.Password, req.ConfirmPassword)...)
	if len(fields) > 0 {
		return nil, httperr.BadRequest("invalid registration", fields...)
	}

	existing, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, identity.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.EmailConfirmed {
		return nil, httperr.BadRequest("invalid registration",
			httperr.FieldError{Field: "username", Message: "this username has been taken"})
	}
	if existing == nil {
		existing, err = s.users.GetByEmail(ctx, req.Email)
		if err != nil && !errors.Is(err, identity.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.EmailConfirmed {
			return nil, httperr.BadRequest("invalid registration",
				httperr.FieldError{Field: "email", Message: "this email has been taken"})
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, httperr.Internal("could not process the password").WithCause(err)
	}
	hashStr := string(hash)

	user := existing
	if user != nil {
		user.Email = req.Email
		user.Username = req.Username
		user.PasswordHash = &hashStr
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	} else {
		user = &identity.User{
			Email:        req.Email,
			Username:     req.Username,
			PasswordHash: &hashStr,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	expiresAt := s.now().Add(s.cfg.RegistrationTTL)
	registrationToken, err := s.tokens.Issue(token.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Purpose:  token.PurposeRegistration,
	}, s.cfg.RegistrationTTL)
	if err != nil {
		return nil, httperr.Internal("could not issue registration token").WithCause(err)
	}

	s.countRegistration("1")
	return &RegistrationStep1Result{Token: registrationToken, ExpiresAt: expiresAt}, nil
}

// resolveRegistrationToken validates the registration token and loads the
// in-progress account. A confirmed account reaching here means a client kept
// replaying registration calls after finishing; that is not a user error.
func (s *Service) resolveRegistrationToken(ctx context.Context, raw string) (*identity.User, error) {
	if raw == "" {
		return nil, httperr.Unauthorized("registration token is missing")
	}
	claims, err := s.tokens.Parse(raw, token.PurposeRegistration, false)
	if err != nil {
		return nil, httperr.Unauthorized("invalid registration token").WithCause(err)
	}
	if claims.Email == "" {
		return nil, httperr.Unauthorized("invalid registration token")
	}
	user, err := s.users.GetByEmail(ctx, claims.Email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, httperr.Unauthorized("invalid registration token")
	}
	if err != nil {
		return nil, err
	}
	if user.EmailConfirmed {
		return nil, httperr.Internal("registration is already completed")
	}
	return user, nil
}

// RegistrationStep2 fills the profile and sends the email confirmation code.
func (s *Service) RegistrationStep2(ctx context.Context, req RegistrationStep2Request, registrationToken string) error {
	var fields []httperr.FieldError
	fields = append(fields, validateName("first_name", req.FirstName)...)
	fields = append(fields, validateName("last_name", req.LastName)...)
	birthDate, dateFields := parseBirthDate(req.BirthDate, s.now())
	fields = append(fields, dateFields...)
	if len(fields) > 0 {
		return httperr.BadRequest("invalid registration", fields...)
	}

	user, err := s.resolveRegistrationToken(ctx, registrationToken)
	if err != nil {
		return err
	}

	profile, err := s.profiles.EnsureProfile(ctx, user.ID)
	if err != nil {
		return err
	}
	profile.FirstName = req.FirstName
	profile.LastName = req.LastName
	profile.BirthDate = &birthDate
	if profile.AvatarURL == nil && s.cfg.DefaultAvatarURL != "" {
		avatar := s.cfg.DefaultAvatarURL
		profile.AvatarURL = &avatar
	}
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		return err
	}

	if err := s.issueConfirmationCode(ctx, user); err != nil {
		return err
	}
	s.countRegistration("2")
	return nil
}

func (s *Service) issueConfirmationCode(ctx context.Context, user *identity.User) error {
	code, err := identity.NewConfirmationCode()
	if err != nil {
		return httperr.Internal("could not generate confirmation code").WithCause(err)
	}
	expiresAt := s.now().Add(s.cfg.ConfirmationTTL)
	user.ConfirmationCode = &code
	user.CodeExpiresAt = &expiresAt
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	body, err := email.RenderConfirmationCode(code, int(s.cfg.ConfirmationTTL.Minutes()))
	if err != nil {
		return httperr.Internal("could not render confirmation email").WithCause(err)
	}
	if err := s.mailer.Send(ctx, user.Email, "Email Confirmation Code", body); err != nil {
		s.countEmail("confirmation_code", "error")
		s.logger.Error().Err(err).Str("email", user.Email).Msg("confirmation email failed")
		return httperr.EmailUnavailable("could not send the confirmation email").WithCause(err)
	}
	s.countEmail("confirmation_code", "ok")
	return nil
}

// AttachRegistrationAvatar stores the uploaded image and points the
// in-progress profile at it. The endpoint shares the registration-token
// guard with the other registration steps.
func (s *Service) AttachRegistrationAvatar(ctx context.Context, registrationToken, fileName, contentType string, content io.Reader) (*blobstore.BlobMetadata, error) {
	user, err := s.resolveRegistrationToken(ctx, registrationToken)
	if err != nil {
		return nil, err
	}
	if s.blobs == nil {
		return nil, httperr.Internal("image storage is not configured")
	}

	stored, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		OwnerID:     user.ID,
		Category:    "avatar",
	}, content)
	switch {
	case err == nil:
	case errors.Is(err, blobstore.ErrFileTooLarge),
		errors.Is(err, blobstore.ErrInvalidContentType),
		errors.Is(err, blobstore.ErrMissingFileName):
		return nil, httperr.BadRequest(err.Error())
	default:
		return nil, err
	}

	profile, err := s.profiles.EnsureProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	avatarURL := "/api/v1/images/" + stored.ID
	profile.AvatarURL = &avatarURL
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return stored, nil
}

// ResendConfirmationCode issues a fresh code, throttled so a client cannot
// hammer the mail service.
func (s *Service) ResendConfirmationCode(ctx context.Context, registrationToken string) error {
	user, err := s.resolveRegistrationToken(ctx, registrationToken)
	if err != nil {
		return err
	}
	if user.ConfirmationCode == nil || user.CodeExpiresAt == nil {
		return httperr.BadRequest("invalid registration",
			httperr.FieldError{Field: "code", Message: "the previous step is not completed, try again"})
	}

	codeIssuedAt := user.CodeExpiresAt.Add(-s.cfg.ConfirmationTTL)
	nextAllowed := codeIssuedAt.Add(s.cfg.CodeResendDelay)
	if s.now().Before(nextAllowed) {
		return httperr.BadRequest("invalid registration",
			httperr.FieldError{Field: "code", Message: "wait some time and try again"})
	}
	return s.issueConfirmationCode(ctx, user)
}

// RegistrationStep3 checks the confirmation code and activates the account.
func (s *Service) RegistrationStep3(ctx context.Context, req RegistrationStep3Request, registrationToken string) error {
	if req.Code == "" {
		return httperr.BadRequest("invalid registration",
			httperr.FieldError{Field: "code", Message: "code is required"})
	}

	user, err := s.resolveRegistrationToken(ctx, registrationToken)
	if err != nil {
		return err
	}
	if user.ConfirmationCode == nil || user.CodeExpiresAt == nil || !s.now().Before(*user.CodeExpiresAt) {
		return httperr.BadRequest("invalid registration",
			httperr.FieldError{Field: "code", Message: "the code is expired, try again"})
	}
	if req.Code != *user.ConfirmationCode {
		return httperr.BadRequest("invalid registration",
			httperr.FieldError{Field: "code", Message: "the code is incorrect"})
	}

	user.EmailConfirmed = true
	user.ConfirmationCode = nil
	user.CodeExpiresAt = nil
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.countRegistration("3")
	return nil
}

// Login authenticates by email or username plus password and opens a session
// for the device.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if req.Login == "" || req.Password == "" || req.DeviceID == "" {
		return nil, httperr.BadRequest("login, password and device id are required")
	}

	var (
		user *identity.User
		err  error
	)
	if strings.Contains(req.Login, "@") {
		user, err = s.users.GetByEmail(ctx, req.Login)
	} else {
		user, err = s.users.GetByUsername(ctx, req.Login)
	}
	if errors.Is(err, identity.ErrNotFound) {
		s.countLogin("not_found")
		return nil, httperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}

	if !user.EmailConfirmed {
		s.countLogin("unconfirmed")
		return nil, httperr.Forbidden("the email is not confirmed, finish your registration")
	}
	if !user.HasPassword() {
		s.countLogin("no_password")
		return nil, httperr.BadRequest("invalid login",
			httperr.FieldError{Field: "password", Message: "the account was registered without a password, try another sign-in method"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		s.countLogin("bad_password")
		return nil, httperr.BadRequest("invalid login",
			httperr.FieldError{Field: "password", Message: "incorrect password"})
	}

	session, err := s.openSession(ctx, user, req.DeviceID)
	if err != nil {
		return nil, err
	}
	s.countLogin("ok")
	return session, nil
}

// GoogleLogin signs in with a Google account, creating or linking the local
// account as needed. Accounts created this way are confirmed immediately and
// carry no local password.
func (s *Service) GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*Session, error) {
	if req.DeviceID == "" {
		return nil, httperr.BadRequest("device id is required")
	}

	idToken := req.IDToken
	if idToken == "" {
		if req.Code == "" {
			return nil, httperr.BadRequest("a google authorization code or id token is required")
		}
		var err error
		idToken, err = s.google.ExchangeCode(ctx, req.Code)
		if err != nil {
			return nil, httperr.BadRequest("invalid external authentication").WithCause(err)
		}
	}

	payload, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, httperr.BadRequest("invalid external authentication").WithCause(err)
	}
	if !payload.EmailVerified {
		return nil, httperr.BadRequest("google email is not verified")
	}

	user, err := s.users.GetByGoogleSubject(ctx, payload.Subject)
	if errors.Is(err, identity.ErrNotFound) {
		user, err = s.linkOrCreateGoogleUser(ctx, payload)
	}
	if err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, user, req.DeviceID)
	if err != nil {
		return nil, err
	}
	s.countLogin("google")
	return session, nil
}

func (s *Service) linkOrCreateGoogleUser(ctx context.Context, payload *googleauth.Payload) (*identity.User, error) {
	subject := payload.Subject

	user, err := s.users.GetByEmail(ctx, payload.Email)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		user = &identity.User{
			Email:          payload.Email,
			Username:       payload.Email,
			EmailConfirmed: true,
			GoogleSubject:  &subject,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		if err := s.seedGoogleProfile(ctx, user.ID, payload); err != nil {
			return nil, err
		}
		return user, nil

	case err != nil:
		return nil, err

	case !user.EmailConfirmed:
		// An abandoned password registration for the same email: Google has
		// verified the address, so take the account over.
		user.EmailConfirmed = true
		user.GoogleSubject = &subject
		user.ConfirmationCode = nil
		user.CodeExpiresAt = nil
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		if err := s.seedGoogleProfile(ctx, user.ID, payload); err != nil {
			return nil, err
		}
		return user, nil

	default:
		user.GoogleSubject = &subject
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
}

func (s *Service) seedGoogleProfile(ctx context.Context, userID int64, payload *googleauth.Payload) error {
	profile, err := s.profiles.EnsureProfile(ctx, userID)
	if err != nil {
		return err
	}
	profile.FirstName = payload.GivenName
	profile.LastName = payload.FamilyName
	if payload.Picture != "" {
		picture := payload.Picture
		profile.AvatarURL = &picture
	} else if profile.AvatarURL == nil && s.cfg.DefaultAvatarURL != "" {
		avatar := s.cfg.DefaultAvatarURL
		profile.AvatarURL = &avatar
	}
	return s.profiles.SaveProfile(ctx, profile)
}

// Refresh exchanges an expired access token plus the refresh cookie for a
// fresh pair. Every failure collapses to a single Unauthorized so the
// response does not leak which check tripped.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	denied := func(cause error) (*Session, error) {
		s.countRefresh("denied")
		e := httperr.Unauthorized("invalid access token or refresh token")
		if cause != nil {
			e = e.WithCause(cause)
		}
		return nil, e
	}

	if refreshToken == "" || accessToken == "" {
		return denied(nil)
	}
	claims, err := s.tokens.Parse(accessToken, token.PurposeAccess, true)
	if err != nil {
		return denied(err)
	}
	if claims.Email == "" || claims.DeviceID == "" {
		return denied(nil)
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if errors.Is(err, identity.ErrNotFound) {
		return denied(nil)
	}
	if err != nil {
		return nil, err
	}

	row, err := s.refresh.Find(ctx, user.ID, claims.DeviceID)
	if errors.Is(err, identity.ErrNotFound) {
		return denied(nil)
	}
	if err != nil {
		return nil, err
	}
	if row.Token != refreshToken || row.Expired(s.now()) {
		return denied(nil)
	}

	session, err := s.openSession(ctx, user, claims.DeviceID)
	if err != nil {
		return nil, err
	}
	s.countRefresh("ok")
	return session, nil
}

// Logout revokes the device's refresh token. A second logout for the same
// device finds no session and is rejected.
func (s *Service) Logout(ctx context.Context, userID int64, deviceID string) error {
	if deviceID == "" {
		return httperr.Unauthorized("invalid access token")
	}
	err := s.refresh.Revoke(ctx, userID, deviceID)
	if errors.Is(err, identity.ErrNotFound) {
		return httperr.Unauthorized("no active session for this device")
	}
	return err
}

// ForgotPassword emails a reset link. Accounts signed up through Google with
// no local password cannot reset one.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if fields := validateEmail(req.Email); len(fields) > 0 {
		return httperr.BadRequest("invalid forgot password request", fields...)
	}
	if req.ClientURI == "" {
		return httperr.BadRequest("invalid forgot password request",
			httperr.FieldError{Field: "client_uri", Message: "client uri is required"})
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, identity.ErrNotFound) {
		return httperr.NotFound("user not found")
	}
	if err != nil {
		return err
	}
	if !user.EmailConfirmed {
		return httperr.Forbidden("the email is not confirmed, finish your registration")
	}
	if !user.HasPassword() {
		return httperr.BadRequest("invalid forgot password request",
			httperr.FieldError{Field: "email", Message: "the account was registered with an external provider, try another way"})
	}

	resetToken, err := newResetToken()
	if err != nil {
		return httperr.Internal("could not generate reset token").WithCause(err)
	}
	expiresAt := s.now().Add(s.cfg.PasswordResetTTL)
	user.ResetToken = &resetToken
	user.ResetTokenExpiresAt = &expiresAt
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	link, err := buildResetLink(req.ClientURI, resetToken, user.Email)
	if err != nil {
		return httperr.BadRequest("invalid forgot password request",
			httperr.FieldError{Field: "client_uri", Message: "client uri is not a valid URL"})
	}
	body, err := email.RenderPasswordReset(link, int(s.cfg.PasswordResetTTL.Minutes()))
	if err != nil {
		return httperr.Internal("could not render reset email").WithCause(err)
	}
	if err := s.mailer.Send(ctx, user.Email, "Password Reset Request", body); err != nil {
		s.countEmail("password_reset", "error")
		s.logger.Error().Err(err).Str("email", user.Email).Msg("reset email failed")
		return httperr.EmailUnavailable("could not send the reset email").WithCause(err)
	}
	s.countEmail("password_reset", "ok")
	return nil
}

// ResetPassword sets a new password when the emailed token matches. All
// sessions keep running; only the credential changes.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	var fields []httperr.FieldError
	fields = append(fields, validatePassword(req.Password)...)
	fields = append(fields, validatePasswordConfirmation(req.Password, req.ConfirmPassword)...)
	if len(fields) > 0 {
		return httperr.BadRequest("invalid reset password request", fields...)
	}
	if req.Token == "" {
		return httperr.BadRequest("invalid reset password request",
			httperr.FieldError{Field: "token", Message: "token is required"})
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, identity.ErrNotFound) {
		return httperr.NotFound("user not found")
	}
	if err != nil {
		return err
	}

	if user.ResetToken == nil || user.ResetTokenExpiresAt == nil ||
		*user.ResetToken != req.Token || !s.now().Before(*user.ResetTokenExpiresAt) {
		return httperr.BadRequest("reset password failed",
			httperr.FieldError{Field: "token", Message: "the reset token is invalid or expired"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return httperr.Internal("could not process the password").WithCause(err)
	}
	hashStr := string(hash)
	user.PasswordHash = &hashStr
	user.ResetToken = nil
	user.ResetTokenExpiresAt = nil
	return s.users.Update(ctx, user)
}

// openSession issues the access token and rotates the device's refresh
// token, returning the profile snapshot the clients render after sign-in.
func (s *Service) openSession(ctx context.Context, user *identity.User, deviceID string) (*Session, error) {
	profile, err := s.profiles.EnsureProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.Issue(token.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		DeviceID: deviceID,
		Roles:    user.Roles,
		Purpose:  token.PurposeAccess,
	}, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, httperr.Internal("could not issue access token").WithCause(err)
	}

	refreshValue, err := identity.NewRefreshTokenValue()
	if err != nil {
		return nil, httperr.Internal("could not issue refresh token").WithCause(err)
	}
	row := &identity.RefreshToken{
		UserID:    user.ID,
		DeviceID:  deviceID,
		Token:     refreshValue,
		ExpiresAt: s.now().Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.refresh.Rotate(ctx, row); err != nil {
		return nil, err
	}

	avatar := s.cfg.DefaultAvatarURL
	if profile.AvatarURL != nil && *profile.AvatarURL != "" {
		avatar = *profile.AvatarURL
	}
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	return &Session{
		Auth: AuthResponse{
			ID:          user.ID,
			FirstName:   profile.FirstName,
			LastName:    profile.LastName,
			Username:    user.Username,
			Email:       user.Email,
			AvatarURL:   avatar,
			Roles:       roles,
			AccessToken: accessToken,
		},
		RefreshToken:     refreshValue,
		RefreshExpiresAt: row.ExpiresAt,
	}, nil
}

func buildResetLink(clientURI, resetToken, emailAddr string) (string, error) {
	u, err := url.Parse(clientURI)
	if err != nil || u.Scheme == "" {
		if err == nil {
			err = errors.New("missing scheme")
		}
		return "", err
	}
	q := u.Query()
	q.Set("token", resetToken)
	q.Set("email", emailAddr)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
