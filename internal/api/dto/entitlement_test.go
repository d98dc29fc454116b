package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

func TestCheckLimitRequestValidate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req := &CheckLimitRequest{ProfileID: "prof_123", Resource: types.ResourcePhotos}
		assert.NoError(t, req.Validate())
	})

	t.Run("unknown resource is a validation error", func(t *testing.T) {
		req := &CheckLimitRequest{ProfileID: "prof_123", Resource: "podcasts"}
		assert.True(t, ierr.IsValidation(req.Validate()))
	})

	t.Run("missing profile id is rejected", func(t *testing.T) {
		req := &CheckLimitRequest{Resource: types.ResourcePhotos}
		assert.Error(t, req.Validate())
	})
}
