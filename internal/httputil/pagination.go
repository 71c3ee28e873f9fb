package httputil

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/ledger/internal/errors"
)

// ParsePagination parses the offset and limit query parameters. Offset defaults to 0 and
// limit to 50; limit cannot exceed 100.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			"invalid offset parameter: must be a non-negative integer",
		)
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 100 {
		return 0, 0, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid limit parameter: must be between 1 and 100")
	}

	return offset, limit, nil
}

// ParseTimeRange parses the from and to query parameters as RFC3339 instants.
// Both are required.
func ParseTimeRange(c *gin.Context) (from, to time.Time, err error) {
	from, err = time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			"invalid from parameter: must be an RFC3339 timestamp",
		)
	}

	to, err = time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			"invalid to parameter: must be an RFC3339 timestamp",
		)
	}

	return from.UTC(), to.UTC(), nil
}

// ParseUUIDParam parses the named path parameter as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid %s: must be a valid UUID", name)
	}
	return id, nil
}

// ParseUUIDQuery parses the named query parameter as a UUID.
func ParseUUIDQuery(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Query(name))
	if err != nil {
		return uuid.Nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid %s: must be a valid UUID", name)
	}
	return id, nil
}
