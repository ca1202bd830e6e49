package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, "hms-api")
	id := uuid.New()

	token, err := svc.Generate(id, RolePatient, "Asha Rao")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SubjectID)
	assert.Equal(t, RolePatient, claims.Role)
	assert.Equal(t, "Asha Rao", claims.Name)
	assert.Equal(t, "hms-api", claims.Issuer)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("secret-a", time.Hour, "hms-api")
	other := NewJWTService("secret-b", time.Hour, "hms-api")

	token, err := svc.Generate(uuid.New(), RoleAdmin, "admin")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Minute, "hms-api")

	token, err := svc.Generate(uuid.New(), RoleAdmin, "admin")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour, "hms-api")
	_, err := svc.Validate("not-a-token")
	assert.Error(t, err)
}
