package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/api/middleware"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
	"hpc-portal/pkg/utils"
)

// currentUser 未认证时直接写入错误响应
func currentUser(c *gin.Context) (*model.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		utils.Error(c, pkgErrors.ErrUnauthorized)
		return nil, false
	}
	return user, true
}

func bindID(c *gin.Context) (int64, bool) {
	var param dto.IDParam
	if err := c.ShouldBindUri(&param); err != nil {
		utils.BindError(c, err)
		return 0, false
	}
	return param.ID, true
}
