// Package security provides JWT token utilities
package security

import (
	"errors"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/user"
	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GetProfileFromClaims extracts a profile from JWT claims
func GetProfileFromClaims(claims jwt.MapClaims) *user.Profile {
	profileData, ok := claims["profile"].(map[string]any)
	if !ok {
		return nil
	}

	guestID, _ := claims["guestId"].(string)
	leadID, _ := claims["leadId"].(string)
	firstname, _ := profileData["firstname"].(string)
	email, _ := profileData["email"].(string)
	tier, _ := profileData["tier"].(string)

	return &user.Profile{
		GuestID:   guestID,
		LeadID:    leadID,
		Firstname: firstname,
		Email:     email,
		Tier:      tier,
	}
}

// GenerateProfileToken creates a JWT token for a converted lead profile
func GenerateProfileToken(profile *user.Profile, jwtSecret string, lifetime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"guestId": profile.GuestID,
		"leadId":  profile.LeadID,
		"profile": map[string]string{
			"firstname": profile.Firstname,
			"email":     profile.Email,
			"tier":      profile.Tier,
		},
		"iat": time.Now().UTC().Unix(),
		"exp": time.Now().UTC().Add(lifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	result, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", err
	}

	return result, nil
}
