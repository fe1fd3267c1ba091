package service

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pricepilot/internal/domain"
	"pricepilot/internal/repository"
)

// MaxProfileImageBytes bounds a single profile image upload.
const MaxProfileImageBytes = 5 << 20

// UserService describes the account operations exposed over HTTP.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	// Login throttles attempts per client address and email pair.
	Login(ctx context.Context, email, password, clientIP string) (*AuthResult, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UpdateProfileImage(ctx context.Context, userID string, image ProfileImage) (string, error)
	AddSavedProduct(ctx context.Context, userID, productID, source string) (domain.SavedProduct, bool, error)
	RemoveSavedProduct(ctx context.Context, userID, productID string) (bool, error)
	ListSavedProducts(ctx context.Context, userID string) ([]domain.SavedProduct, error)
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
}

// UserStore hands out the shared user repository.
type UserStore interface {
	Users(ctx context.Context) (repository.UserRepository, error)
}

// ImageArchiver keeps a copy of uploaded profile images outside the user record.
type ImageArchiver interface {
	ArchiveProfileImage(ctx context.Context, userID, contentType string, data []byte) (string, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// ProfileImage is a raw uploaded image.
type ProfileImage struct {
	ContentType string
	Data        []byte
}

// Deps wires a UserService. Limiter, Images and Logger are optional.
type Deps struct {
	Store   UserStore
	Hasher  PasswordHasher
	Tokens  TokenService
	Limiter Limiter
	Images  ImageArchiver
	Logger  logrus.FieldLogger
	Now     func() time.Time
}

type userService struct {
	store   UserStore
	hasher  PasswordHasher
	tokens  TokenService
	limiter Limiter
	images  ImageArchiver
	logger  logrus.FieldLogger
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(deps Deps) UserService {
	s := &userService{
		store:   deps.Store,
		hasher:  deps.Hasher,
		tokens:  deps.Tokens,
		limiter: deps.Limiter,
		images:  deps.Images,
		logger:  deps.Logger,
		now:     deps.Now,
	}
	if s.hasher == nil {
		s.hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)

	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, domain.Dependency("hash password", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, classify("create user", err)
	}

	return s.issue(user)
}

func (s *userService) Login(ctx context.Context, email, password, clientIP string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, loginAttemptKey(clientIP, email))
		if err != nil {
			return nil, domain.Dependency("check login attempts", err)
		}
		if !allowed {
			return nil, domain.ErrTooManyAttempts
		}
	}

	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// same bcrypt cost as a real mismatch
			s.hasher.Verify(password, s.timingHash())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, classify("load user", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *userService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if userID == "" {
		return domain.ErrUnauthorized
	}
	if currentPassword == "" {
		return domain.Validationf("current password is required")
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return domain.Validationf("new %s", domain.MessageOf(err))
	}

	users, err := s.users(ctx)
	if err != nil {
		return err
	}

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return classify("load user", err)
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return domain.ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.Dependency("hash password", err)
	}
	if err := users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return classify("update password", err)
	}
	return nil
}

func (s *userService) UpdateProfileImage(ctx context.Context, userID string, image ProfileImage) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthorized
	}
	if len(image.Data) == 0 {
		return "", domain.Validationf("image is required")
	}
	if len(image.Data) > MaxProfileImageBytes {
		return "", domain.Validationf("image must be at most %d bytes", MaxProfileImageBytes)
	}

	contentType, err := imageContentType(image)
	if err != nil {
		return "", err
	}
	dataURI := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)

	users, err := s.users(ctx)
	if err != nil {
		return "", err
	}
	if err := users.UpdateProfileImage(ctx, userID, dataURI); err != nil {
		return "", classify("update profile image", err)
	}

	if s.images != nil {
		location, err := s.images.ArchiveProfileImage(ctx, userID, contentType, image.Data)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("archive profile image")
		} else {
			s.logger.WithField("location", location).Debug("profile image archived")
		}
	}

	return dataURI, nil
}

func (s *userService) AddSavedProduct(ctx context.Context, userID, productID, source string) (domain.SavedProduct, bool, error) {
	if userID == "" {
		return domain.SavedProduct{}, false, domain.ErrUnauthorized
	}
	productID = strings.TrimSpace(productID)
	if err := domain.ValidateProductID(productID); err != nil {
		return domain.SavedProduct{}, false, err
	}
	src, err := domain.ParseProductSource(source)
	if err != nil {
		return domain.SavedProduct{}, false, err
	}

	users, err := s.users(ctx)
	if err != nil {
		return domain.SavedProduct{}, false, err
	}

	product := domain.SavedProduct{ProductID: productID, Source: src, DateAdded: s.now()}
	added, err := users.AddSavedProduct(ctx, userID, product)
	if err != nil {
		return domain.SavedProduct{}, false, classify("add saved product", err)
	}
	return product, added, nil
}

func (s *userService) RemoveSavedProduct(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, domain.ErrUnauthorized
	}
	productID = strings.TrimSpace(productID)
	if err := domain.ValidateProductID(productID); err != nil {
		return false, err
	}

	users, err := s.users(ctx)
	if err != nil {
		return false, err
	}

	removed, err := users.RemoveSavedProduct(ctx, userID, productID)
	if err != nil {
		return false, classify("remove saved product", err)
	}
	return removed, nil
}

func (s *userService) ListSavedProducts(ctx context.Context, userID string) ([]domain.SavedProduct, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	products, err := users.ListSavedProducts(ctx, userID)
	if err != nil {
		return nil, classify("list saved products", err)
	}
	return products, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, classify("load user", err)
	}
	return sanitizeUser(user), nil
}

func (s *userService) users(ctx context.Context) (repository.UserRepository, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, classify("connect user store", err)
	}
	return users, nil
}

func (s *userService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, domain.Dependency("issue token", err)
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      sanitizeUser(user),
	}, nil
}

func loginAttemptKey(clientIP, email string) string {
	if clientIP == "" {
		clientIP = "unknown"
	}
	return "login:" + clientIP + ":" + email
}

func (s *userService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.WithError(err).Warn("prepare timing hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func imageContentType(image ProfileImage) (string, error) {
	contentType := strings.TrimSpace(image.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(image.Data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", domain.Validationf("file must be an image")
	}
	return mediaType, nil
}

// classify keeps domain errors as they are and marks everything else as a dependency failure.
func classify(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Dependency(op, err)
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	products := make([]domain.SavedProduct, len(user.SavedProducts))
	copy(products, user.SavedProducts)
	return &domain.User{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		ProfileImage:  user.ProfileImage,
		SavedProducts: products,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}
