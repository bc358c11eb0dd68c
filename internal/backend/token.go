package backend

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims is the subset of access-token claims the client reads. The
// client holds no signing secret, so tokens are decoded without
// verification; the remote service is the one enforcing them.
type accessClaims struct {
	Subject string
	Email   string
	Exp     int64
}

// decodeAccessToken extracts identity and expiry claims from an access
// token without verifying its signature.
func decodeAccessToken(tokenString string) (*accessClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid access token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid sub in access token")
	}

	// Email is optional in some token variants.
	email, _ := claims["email"].(string)

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in access token")
	}

	return &accessClaims{
		Subject: sub,
		Email:   email,
		Exp:     int64(exp),
	}, nil
}
