package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinNameLength         = 3
	MaxNameLength         = 50
	MinEmailLength        = 5
	MaxEmailLength        = 255
	MinPasswordHashLength = 8
	MaxPasswordHashLength = 1024
	MinPasswordLength     = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes   = 72
	MaxProductIDLength = 255
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// User is the persisted account document.
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string `json:"-"`
	ProfileImage  string
	SavedProducts []SavedProduct
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SavedProduct references an externally tracked product by identifier only.
type SavedProduct struct {
	ProductID string
	Source    ProductSource
	DateAdded time.Time
}

type ProductSource string

const (
	SourceAmazon        ProductSource = "Amazon"
	SourceFlipkart      ProductSource = "Flipkart"
	SourceMyntra        ProductSource = "Myntra"
	SourceProductCard   ProductSource = "ProductCard"
	SourceProductDetail ProductSource = "ProductDetail"
	SourceOther         ProductSource = "Other"
)

var productSources = []ProductSource{
	SourceAmazon,
	SourceFlipkart,
	SourceMyntra,
	SourceProductCard,
	SourceProductDetail,
	SourceOther,
}

// ParseProductSource accepts the canonical spelling; an empty value means Other.
func ParseProductSource(s string) (ProductSource, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SourceOther, nil
	}
	for _, src := range productSources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", Validationf("unknown product source %q", s)
}

// NormalizeEmail trims and lower-cases an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return Validationf("name must be between %d and %d characters", MinNameLength, MaxNameLength)
	}
	return nil
}

func ValidateEmail(email string) error {
	n := utf8.RuneCountInString(email)
	if n < MinEmailLength || n > MaxEmailLength {
		return Validationf("email must be between %d and %d characters", MinEmailLength, MaxEmailLength)
	}
	if !emailPattern.MatchString(email) {
		return Validationf("email address is invalid")
	}
	return nil
}

// ValidatePassword checks a plaintext password before it is hashed.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Validationf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return Validationf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

func ValidateProductID(id string) error {
	if id == "" {
		return Validationf("product id is required")
	}
	if len(id) > MaxProductIDLength {
		return Validationf("product id must be at most %d characters", MaxProductIDLength)
	}
	return nil
}

// Validate enforces the persisted field constraints.
func (u *User) Validate() error {
	if u.ID == "" {
		return Validationf("user id is required")
	}
	if err := ValidateName(u.Name); err != nil {
		return err
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if n := len(u.PasswordHash); n < MinPasswordHashLength || n > MaxPasswordHashLength {
		return Validationf("password hash must be between %d and %d characters", MinPasswordHashLength, MaxPasswordHashLength)
	}
	for _, p := range u.SavedProducts {
		if err := ValidateProductID(p.ProductID); err != nil {
			return err
		}
		if _, err := ParseProductSource(string(p.Source)); err != nil {
			return err
		}
	}
	return nil
}

func (p ProductSource) String() string { return string(p) }
