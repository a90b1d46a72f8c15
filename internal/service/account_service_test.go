package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mcourse/internal/model"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Kind: model.AccountKindAdmin, Email: adminEmail, Password: testPassword},
		{Kind: model.AccountKindAdmin, Name: "Root", Email: adminEmail, Password: "weak"},
		{Kind: model.AccountKindAdmin, Name: "Root", Email: "broken", Password: testPassword},
		{Kind: model.AccountKindUser},
		{Kind: model.AccountKindUser, Email: "learner@example.com"},
		{Kind: model.AccountKindUser, Phone: "12"},
		{Kind: "instructor", Email: adminEmail, Password: testPassword},
	}
	for i, in := range cases {
		_, err := h.accts.Register(ctx, in)
		require.ErrorIs(t, err, appErr.ErrInvalid, fmt.Sprintf("case %d", i))
	}
}

func TestRegisterConflictIsPerKind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.registerAdmin(t)

	_, err := h.accts.Register(ctx, RegisterInput{Kind: model.AccountKindAdmin, Name: "Dup", Email: "ADMIN@example.com", Password: testPassword})
	require.ErrorIs(t, err, appErr.ErrConflict)

	summary, err := h.accts.Register(ctx, RegisterInput{Kind: model.AccountKindUser, Email: adminEmail, Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, model.AccountKindUser, summary.Kind)
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	h := newHarness(t)
	summary := h.registerAdmin(t)
	account, err := h.accounts.GetByID(context.Background(), summary.ID)
	require.NoError(t, err)
	require.NotEqual(t, testPassword, account.PasswordHash)
	require.True(t, account.HasPassword())
	require.True(t, account.Active)
}

func TestChangePasswordResetsSession(t *testing.T) {
	h := newHarness(t)
	admin := h.registerAdmin(t)
	auth := h.fullLogin(t, model.AccountKindAdmin, adminEmail, adminEmail, fpA)
	ctx := context.Background()

	require.ErrorIs(t, h.accts.ChangePassword(ctx, admin.ID, "Wrong#123", "Other#456"), appErr.ErrInvalidCredential)
	require.ErrorIs(t, h.accts.ChangePassword(ctx, admin.ID, testPassword, testPassword), appErr.ErrInvalid)
	require.ErrorIs(t, h.accts.ChangePassword(ctx, admin.ID, testPassword, "short"), appErr.ErrInvalid)

	require.NoError(t, h.accts.ChangePassword(ctx, admin.ID, testPassword, "Other#456"))
	_, err := h.auth.VerifyRequest(ctx, auth.Token, fpA)
	require.ErrorIs(t, err, appErr.ErrOTPRequired)

	_, err = h.auth.Login(ctx, LoginInput{Kind: model.AccountKindAdmin, Identifier: adminEmail, Credential: testPassword, Fingerprint: fpA})
	require.ErrorIs(t, err, appErr.ErrInvalidCredential)
	res, err := h.auth.Login(ctx, LoginInput{Kind: model.AccountKindAdmin, Identifier: adminEmail, Credential: "Other#456", Fingerprint: fpA})
	require.NoError(t, err)
	require.True(t, res.OTPRequired)
}

func TestChangePasswordWithoutPassword(t *testing.T) {
	h := newHarness(t)
	user := h.registerUser(t, "")
	require.ErrorIs(t, h.accts.ChangePassword(context.Background(), user.ID, "a", "b"), appErr.ErrInvalid)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	admin := h.registerAdmin(t)
	ctx := context.Background()

	account, err := h.accts.UpdateProfile(ctx, admin.ID, "  New Name ")
	require.NoError(t, err)
	require.Equal(t, "New Name", account.Name)

	_, err = h.accts.UpdateProfile(ctx, admin.ID, "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = h.accts.UpdateProfile(ctx, "missing", "x")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	profile, err := h.accts.Profile(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, "New Name", profile.Name)
}

func TestListPaginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := h.accts.Register(ctx, RegisterInput{Kind: model.AccountKindUser, Phone: fmt.Sprintf("+1555000200%d", i)})
		require.NoError(t, err)
	}
	page, err := h.accts.List(ctx, model.AccountListQuery{Kind: model.AccountKindUser, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, uint(5), page.Total)
	require.Equal(t, uint(3), page.PageCount)
	require.Equal(t, uint(2), page.Page)
	require.Len(t, page.Accounts, 2)

	page, err = h.accts.List(ctx, model.AccountListQuery{Kind: model.AccountKindUser, Limit: 1000})
	require.NoError(t, err)
	require.Len(t, page.Accounts, 5)
	require.Equal(t, uint(1), page.PageCount)

	_, err = h.accts.List(ctx, model.AccountListQuery{Kind: "other"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestSetActive(t *testing.T) {
	h := newHarness(t)
	user := h.registerUser(t, testPassword)
	ctx := context.Background()
	h.fullLogin(t, model.AccountKindUser, userPhone, userPhone, fpA)

	require.NoError(t, h.accts.SetActive(ctx, user.ID, false))
	st := h.sessions.State(user.ID)
	require.Equal(t, model.StateAnonymous, st.State)
	require.Empty(t, st.SessionToken)

	require.NoError(t, h.accts.SetActive(ctx, user.ID, true))
	require.ErrorIs(t, h.accts.SetActive(ctx, "missing", true), appErr.ErrNotFound)
}
