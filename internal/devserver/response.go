package devserver

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/gin-gonic/gin"
)

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// failErr maps store errors to statuses; anything unknown is a 400 with the
// error text.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		fail(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, errConflict):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrorInternal):
		fail(c, http.StatusInternalServerError, err.Error())
	default:
		fail(c, http.StatusBadRequest, err.Error())
	}
}
