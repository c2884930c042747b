package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LinkedInToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
