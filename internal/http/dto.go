package http

import (
	"time"

	"pricepilot/internal/domain"
	"pricepilot/internal/service"
)

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type ProfileResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	ProfileImage  string                 `json:"profileImage"`
	SavedProducts []SavedProductResponse `json:"savedProducts"`
	CreatedAt     string                 `json:"createdAt"`
}

type SavedProductResponse struct {
	ProductID string `json:"productId"`
	Source    string `json:"source"`
	DateAdded string `json:"dateAdded"`
}

func authToResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		Token: result.Token,
		User: UserResponse{
			ID:    result.User.ID,
			Name:  result.User.Name,
			Email: result.User.Email,
		},
	}
}

func profileToResponse(user *domain.User) ProfileResponse {
	resp := ProfileResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		ProfileImage:  user.ProfileImage,
		SavedProducts: make([]SavedProductResponse, len(user.SavedProducts)),
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
	for i := range user.SavedProducts {
		resp.SavedProducts[i] = savedProductToResponse(user.SavedProducts[i])
	}
	return resp
}

func savedProductToResponse(p domain.SavedProduct) SavedProductResponse {
	return SavedProductResponse{
		ProductID: p.ProductID,
		Source:    p.Source.String(),
		DateAdded: p.DateAdded.Format(time.RFC3339),
	}
}
