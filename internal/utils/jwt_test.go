package utils

import (
	"testing"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "test-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	cfg := testConfig()
	user := &models.User{Role: booking.RoleDoctor}
	user.ID = "user-123"

	access, refresh, err := GenerateTokens(user, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if access == "" || refresh == "" || access == refresh {
		t.Fatal("expected two distinct non-empty tokens")
	}

	claims, err := ValidateToken(access, cfg.JWTSecret)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "user-123" || claims.Role != booking.RoleDoctor {
		t.Errorf("claims round-trip lost data: %+v", claims)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	cfg := testConfig()
	user := &models.User{Role: booking.RolePatient}
	user.ID = "user-123"

	access, _, err := GenerateTokens(user, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(access, "some-other-secret"); err == nil {
		t.Fatal("expected validation to fail under the wrong secret")
	}
	// A refresh token must not pass as an access token.
	_, refresh, err := GenerateTokens(user, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(refresh, cfg.JWTSecret); err == nil {
		t.Fatal("expected refresh token to fail access validation")
	}
}
