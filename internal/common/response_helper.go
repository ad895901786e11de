package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseSuccess 返回成功响应
func ResponseSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse(data))
}

// ResponseSuccessMessage 返回成功响应（带消息）
func ResponseSuccessMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessMessageResponse(message, data))
}

// ResponseCreated 返回创建成功响应（201）
func ResponseCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, SuccessResponse(data))
}

// ResponseNoContent 返回无内容响应（204）
func ResponseNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ResponseList 返回分页列表响应
func ResponseList(c *gin.Context, items any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, SuccessResponse(NewListResponse(items, page, pageSize, total)))
}

// ResponseError 返回错误响应
func ResponseError(c *gin.Context, code int, message string) {
	c.JSON(httpStatusForCode(code), ErrorResponse(code, message))
}

// ResponseBusinessError 返回业务错误响应
func ResponseBusinessError(c *gin.Context, err *BusinessError) {
	ResponseError(c, err.Code, err.Message)
}

// ResponseFromError 根据错误类型自动选择响应
// 业务错误按错误码映射，其他错误统一按内部错误处理
func ResponseFromError(c *gin.Context, err error) {
	var bizErr *BusinessError
	if errors.As(err, &bizErr) {
		ResponseBusinessError(c, bizErr)
		return
	}
	ResponseError(c, CodeInternalError, err.Error())
}

// ResponseBadRequest 返回参数错误响应
func ResponseBadRequest(c *gin.Context, message string) {
	ResponseError(c, CodeInvalidRequest, message)
}

// ResponseUnauthorized 返回未认证响应
func ResponseUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "未认证，请先登录"
	}
	ResponseError(c, CodeUnauthorized, message)
}

// ResponseForbidden 返回无权限响应
func ResponseForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "权限不足"
	}
	ResponseError(c, CodeForbidden, message)
}

// ResponseNotFound 返回资源不存在响应
func ResponseNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "资源不存在"
	}
	ResponseError(c, CodeNotFound, message)
}

// ResponseServerError 返回服务器错误响应
func ResponseServerError(c *gin.Context, message string) {
	if message == "" {
		message = "服务器内部错误"
	}
	ResponseError(c, CodeInternalError, message)
}

// httpStatusForCode 业务状态码到HTTP状态码的映射
// 未明确映射的业务错误统一返回200，交由前端按code处理
func httpStatusForCode(code int) int {
	switch code {
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotAssignedApprover:
		return http.StatusForbidden
	case CodeNotFound, CodeUserNotFound, CodeCustomerNotFound,
		CodeQuotationNotFound, CodeWorkflowNotFound,
		CodeApprovalNotFound, CodeApprovalStepNotFound:
		return http.StatusNotFound
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeConflict, CodeDuplicatePendingApproval, CodeWorkflowNameDuplicated:
		return http.StatusConflict
	case CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
