package errs_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/imadegautama/simple-library/internal/errs"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	t.Run("accumulates per field", func(t *testing.T) {
		t.Parallel()
		verr := errs.NewValidation()
		require.False(t, verr.Any())

		verr.Add("bookIds", "book 1 is out of stock")
		verr.Addf("bookIds", "book with id %d does not exist", 99)
		verr.Add("memberId", "selected member does not exist")

		require.True(t, verr.Any())
		require.Len(t, verr.Fields["bookIds"], 2)
		require.Equal(t,
			"validation failed: bookIds: book 1 is out of stock; book with id 99 does not exist memberId: selected member does not exist",
			verr.Error())
	})

	t.Run("unwraps through a wrapped chain", func(t *testing.T) {
		t.Parallel()
		err := errors.WithMessage(errs.Validationf("email", "email is already registered"), "register")

		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "email")
	})
}

func TestSentinels(t *testing.T) {
	t.Parallel()
	err := errors.WithMessage(errs.ErrStateConflict, "loan is already returned or cancelled")
	require.ErrorIs(t, err, errs.ErrStateConflict)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}
