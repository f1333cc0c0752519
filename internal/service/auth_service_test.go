package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusdesk/reception-service/internal/auth"
	"github.com/campusdesk/reception-service/internal/config"
	"github.com/campusdesk/reception-service/internal/domain"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

func newAuthService(t *testing.T, repo *stubStaffRepo) *AuthService {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:              "test-secret",
		AccessTokenTTLMinutes:  60,
		VisitorTokenTTLMinutes: 15,
		BcryptCost:             bcrypt.MinCost,
	}}
	return NewAuthService(cfg, repo)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestVerifyCredentials(t *testing.T) {
	repo := &stubStaffRepo{members: []domain.StaffMember{
		{ID: "s1", Name: "Dr. Alice C. Smith", Email: "alice@uni.example", ShortCode: "ACS", PasswordHash: hashed(t, "alice-pass"), Active: true},
		{ID: "s2", Name: "Retired", Email: "old@uni.example", PasswordHash: hashed(t, "old-pass"), Active: false},
	}}
	svc := newAuthService(t, repo)
	ctx := context.Background()

	member, err := svc.VerifyCredentials(ctx, "Alice@Uni.Example", "alice-pass")
	require.NoError(t, err)
	assert.Equal(t, "s1", member.ID)

	member, err = svc.VerifyCredentials(ctx, "acs", "alice-pass")
	require.NoError(t, err)
	assert.Equal(t, "s1", member.ID)

	cases := []struct {
		name, identifier, password string
	}{
		{"wrong password", "alice@uni.example", "nope"},
		{"unknown", "ghost@uni.example", "alice-pass"},
		{"inactive", "old@uni.example", "old-pass"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.VerifyCredentials(ctx, tc.identifier, tc.password)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "got %v", err)
		})
	}
}

func TestVerifyCredentialsDirectoryFailureIsTransient(t *testing.T) {
	svc := newAuthService(t, &stubStaffRepo{err: errors.New("connection refused")})
	_, err := svc.VerifyCredentials(context.Background(), "alice@uni.example", "alice-pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransient))
}

func TestLoginStaffIssuesParsableToken(t *testing.T) {
	repo := &stubStaffRepo{members: []domain.StaffMember{
		{ID: "s1", Name: "Dr. Alice C. Smith", Email: "alice@uni.example", PasswordHash: hashed(t, "alice-pass"), Active: true},
	}}
	svc := newAuthService(t, repo)

	member, meta, token, err := svc.LoginStaff(context.Background(), "alice@uni.example", "alice-pass")
	require.NoError(t, err)
	assert.Equal(t, "s1", member.ID)
	assert.Equal(t, domain.SubjectTypeStaff, meta.Subject)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
}

func TestIssueVisitorToken(t *testing.T) {
	svc := newAuthService(t, &stubStaffRepo{})

	_, _, err := svc.IssueVisitorToken("   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	meta, token, err := svc.IssueVisitorToken(" Jane Visitor ")
	require.NoError(t, err)
	assert.Equal(t, "Jane Visitor", meta.DisplayName)
	assert.Equal(t, domain.SubjectTypeVisitor, meta.Subject)
	assert.NotEmpty(t, meta.SubjectID)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Jane Visitor", claims.DisplayName)
}

func TestRegisterStaffHashesPassword(t *testing.T) {
	repo := &stubStaffRepo{}
	svc := newAuthService(t, repo)

	err := svc.RegisterStaff(context.Background(), &domain.StaffMember{Name: "Bob", Email: "bob@uni.example"}, "short")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	member := &domain.StaffMember{Name: "Bob", Email: "bob@uni.example"}
	require.NoError(t, svc.RegisterStaff(context.Background(), member, "long-enough"))
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].Active)
	assert.NoError(t, auth.ComparePassword(repo.created[0].PasswordHash, "long-enough"))
}
