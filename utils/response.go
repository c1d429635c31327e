package utils

import "github.com/gin-gonic/gin"

// JSONResponse is the uniform body every endpoint returns. Code 0 means
// success; non-zero codes identify the app error independent of the HTTP
// status (40xxx client faults, 40120 the cron gate, 50xxx server faults),
// so clients branch on Code rather than matching Message text.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes the envelope with an explicit HTTP status. Handlers that
// need a non-200 success, like the 201 on a freshly created prediction,
// call this directly.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success writes a 200 envelope with code 0.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error writes an error envelope; Data is always omitted on errors.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
