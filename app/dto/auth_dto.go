package dto

// IssueTokenRequest exchanges an operator API key for a token pair
type IssueTokenRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// RefreshTokenRequest rotates a token pair using the refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPairResponse carries a freshly issued operator token pair
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until the access token expires
}
