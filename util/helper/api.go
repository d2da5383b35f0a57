package helper_util

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetLimitParam reads the "limit" query parameter, falling back to def.
func GetLimitParam(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q: %w", raw, err)
	}
	return limit, nil
}
