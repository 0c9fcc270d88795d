package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess_OmitsError(t *testing.T) {
	raw, err := json.Marshal(Success(map[string]string{"ticket_number": "TKT-1"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"ticket_number":"TKT-1"}}`, string(raw))
}

func TestErrorWithDetails(t *testing.T) {
	resp := ErrorWithDetails("ALREADY_USED", "Ticket already used", map[string]string{"used_by": "scanner-1"})

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_USED", resp.Error.Code)
	assert.Equal(t, map[string]string{"used_by": "scanner-1"}, resp.Error.Details)
}

func TestPaginated_TotalPages(t *testing.T) {
	tests := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}

	for _, tt := range tests {
		resp := Paginated(nil, 1, tt.perPage, tt.total)
		if resp.Meta.TotalPages != tt.want {
			t.Errorf("Paginated(total=%d, perPage=%d).TotalPages = %d, want %d", tt.total, tt.perPage, resp.Meta.TotalPages, tt.want)
		}
	}
}

func TestHelpersUseCodes(t *testing.T) {
	assert.Equal(t, ErrCodeBadRequest, BadRequest("x").Error.Code)
	assert.Equal(t, ErrCodeUnauthorized, Unauthorized("x").Error.Code)
	assert.Equal(t, ErrCodeForbidden, Forbidden("x").Error.Code)
	assert.Equal(t, ErrCodeNotFound, NotFound("x").Error.Code)
	assert.Equal(t, ErrCodeConflict, Conflict("x").Error.Code)
	assert.Equal(t, ErrCodeInternal, InternalError("x").Error.Code)
	assert.Equal(t, ErrCodeValidation, ValidationError("x", nil).Error.Code)
}
