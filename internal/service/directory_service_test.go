package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/campusdesk/reception-service/internal/domain"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

func TestResolveIdentity(t *testing.T) {
	repo := &stubStaffRepo{members: []domain.StaffMember{
		{ID: "s1", Name: "Prof. Bob Jones", Email: "bob@uni.example", ShortCode: "BJ", Active: true},
	}}
	svc := NewDirectoryService(repo, zaptest.NewLogger(t))
	ctx := context.Background()

	for _, id := range []string{"s1", "BOB@uni.example", "bj", "prof. bob jones"} {
		member, err := svc.ResolveIdentity(ctx, id)
		require.NoError(t, err, id)
		require.NotNil(t, member, id)
		assert.Equal(t, "s1", member.ID)
	}

	member, err := svc.ResolveIdentity(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, member)

	member, err = svc.ResolveIdentity(ctx, "  ")
	require.NoError(t, err)
	assert.Nil(t, member)
}

func TestDirectoryFailuresAreTransient(t *testing.T) {
	svc := NewDirectoryService(&stubStaffRepo{err: errors.New("timeout")}, zaptest.NewLogger(t))

	_, err := svc.ResolveIdentity(context.Background(), "bj")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransient))

	_, err = svc.LoadAll(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransient))
}

func TestLoadAllSkipsInactive(t *testing.T) {
	repo := &stubStaffRepo{members: []domain.StaffMember{
		{ID: "s1", Name: "A", Active: true},
		{ID: "s2", Name: "B", Active: false},
	}}
	members, err := NewDirectoryService(repo, zaptest.NewLogger(t)).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "s1", members[0].ID)
}
