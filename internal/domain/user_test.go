package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricepilot/internal/domain"
)

func validUser() *domain.User {
	return &domain.User{
		ID:           "7d9f2b52-0a57-4c1e-9a43-1b7f6f1b8d11",
		Name:         "Ann",
		Email:        "ann@x.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(u *domain.User)
		wantErr bool
	}{
		{"valid", func(u *domain.User) {}, false},
		{"name too short", func(u *domain.User) { u.Name = "An" }, true},
		{"name too long", func(u *domain.User) { u.Name = strings.Repeat("a", 51) }, true},
		{"name at max", func(u *domain.User) { u.Name = strings.Repeat("a", 50) }, false},
		{"email without at", func(u *domain.User) { u.Email = "ann.x.com" }, true},
		{"email without domain dot", func(u *domain.User) { u.Email = "ann@xcom" }, true},
		{"email too short", func(u *domain.User) { u.Email = "a@b." }, true},
		{"email too long", func(u *domain.User) { u.Email = strings.Repeat("a", 250) + "@x.com" }, true},
		{"missing id", func(u *domain.User) { u.ID = "" }, true},
		{"hash too short", func(u *domain.User) { u.PasswordHash = "short" }, true},
		{"hash too long", func(u *domain.User) { u.PasswordHash = strings.Repeat("h", 1025) }, true},
		{"bad saved source", func(u *domain.User) {
			u.SavedProducts = []domain.SavedProduct{{ProductID: "p1", Source: "eBay"}}
		}, true},
		{"empty saved product id", func(u *domain.User) {
			u.SavedProducts = []domain.SavedProduct{{ProductID: "", Source: domain.SourceAmazon}}
		}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := validUser()
			tc.mutate(u)
			err := u.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.KindValidation, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseProductSource(t *testing.T) {
	for _, s := range []string{"Amazon", "Flipkart", "Myntra", "ProductCard", "ProductDetail", "Other"} {
		src, err := domain.ParseProductSource(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, src.String())
	}

	src, err := domain.ParseProductSource("  ")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceOther, src)

	_, err = domain.ParseProductSource("amazon")
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, domain.ValidatePassword("short"))
	assert.NoError(t, domain.ValidatePassword("secret12"))
	assert.Error(t, domain.ValidatePassword(strings.Repeat("p", 73)))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@x.com", domain.NormalizeEmail("  Ann@X.com "))
}
