package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/port"
	"storefront/internal/util"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// phone identifiers have at least this many digits
const minPhoneDigits = 10

// AuthOptions configures session lifetimes and hashing cost
type AuthOptions struct {
	SessionTTL  time.Duration
	RememberTTL time.Duration
	BcryptCost  int
}

// RegisterInput is the sign-up form
type RegisterInput struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Phone     string `json:"phone" binding:"omitempty,max=32"`
	Password  string `json:"password" binding:"required,strongpassword"`
	Confirm   string `json:"confirm" binding:"required,eqfield=Password"`
	Agree     bool   `json:"agree" binding:"required"`
	FirstName string `json:"firstName" binding:"max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
}

// LoginInput accepts an email or a phone number as identifier
type LoginInput struct {
	Identifier string `json:"identifier" binding:"required,max=254"`
	Password   string `json:"password" binding:"required,max=128"`
	Remember   bool   `json:"remember"`
}

// Session is an issued session token
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// AuthService registers users and issues session tokens
type AuthService struct {
	users    port.UserRepository
	carts    *CartService
	tokens   *auth.Tokens
	validate *validator.Validate
	opts     AuthOptions
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users port.UserRepository, carts *CartService, tokens *auth.Tokens, opts AuthOptions) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}

	return &AuthService{
		users:    users,
		carts:    carts,
		tokens:   tokens,
		validate: v,
		opts:     opts,
		logger:   util.Named("auth"),
	}
}

// RegisterValidators adds the custom tags used by the auth forms
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
}

// StrongPassword requires eight characters with an upper case letter, a lower
// case letter and a digit
func StrongPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Register creates a user account
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = digitsOnly(in.Phone)

	if err := s.validate.Struct(in); err != nil {
		util.AuthAttemptsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, badRequest("%s", DescribeValidation(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		firstName = "Guest"
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     strings.TrimSpace(in.LastName),
	}
	if in.Phone != "" {
		user.Phone = &in.Phone
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, port.ErrDuplicate) {
			util.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, fmt.Errorf("%w: email or phone is already in use", ErrConflict)
		}
		return nil, persistence("create user", err)
	}

	util.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login checks credentials and issues a session. When guestToken names an
// OPEN guest cart its lines are merged into the user's cart.
func (s *AuthService) Login(ctx context.Context, in LoginInput, guestToken string) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return nil, badRequest("%s", DescribeValidation(err))
	}

	var (
		user *models.User
		err  error
	)
	if phone := digitsOnly(in.Identifier); len(phone) >= minPhoneDigits {
		user, err = s.users.GetUserByPhone(ctx, phone)
	} else {
		user, err = s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Identifier)))
	}
	if err != nil {
		return nil, persistence("get user", err)
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		util.AuthAttemptsTotal.WithLabelValues("login", "denied").Inc()
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	ttl := s.opts.SessionTTL
	if in.Remember {
		ttl = s.opts.RememberTTL
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, ttl)
	if err != nil {
		return nil, err
	}

	if guestToken != "" && s.carts != nil {
		if _, err := s.carts.MergeGuestCart(ctx, user.ID, guestToken); err != nil {
			s.logger.Error("Failed to merge guest cart", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	util.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	s.logger.Info("User logged in", zap.Int64("user_id", user.ID), zap.Bool("remember", in.Remember))
	return &Session{User: user, Token: token, ExpiresAt: expiresAt, TTL: ttl}, nil
}

// Authenticate verifies a session token and returns its user id
func (s *AuthService) Authenticate(token string) (int64, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return userID, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DescribeValidation turns the first validator failure into a client message
func DescribeValidation(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err.Error()
	}

	fe := errs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		if fe.Kind().String() == "bool" {
			return fmt.Sprintf("%s must be accepted", field)
		}
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "email is not a valid address"
	case "strongpassword":
		return "password needs at least 8 characters with upper case, lower case and a digit"
	case "eqfield":
		return "passwords do not match"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
