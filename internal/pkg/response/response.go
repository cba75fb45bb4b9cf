package response

import (
	"math/rand/v2"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

var notFoundMessages = []string{
	"Тут пусто... мем куда-то убежал o(╥﹏╥)o",
	"404: такой страницы нет, но вы держитесь",
	"Картинка потерялась по дороге π_π",
	"Ничего не нашлось. Может, поискать в другом месте?",
	"Сервер проверил карманы — правда нет (´･ω･`)",
}

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// pagedResponse is the envelope for paginated list responses.
type pagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, pagedResponse{
		Data:       data,
		Pagination: pagination,
	})
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an arbitrary error status with the standard envelope.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": 0, "code": status, "message": message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Кажется, вы ещё не вошли ((/- -)/")
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Нельзя! Не покажу")
}

// ForbiddenMsg sends a 403 error response with a custom message.
func ForbiddenMsg(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	msg := "Not Found"
	if len(notFoundMessages) > 0 {
		msg = notFoundMessages[rand.IntN(len(notFoundMessages))]
	}
	Error(c, http.StatusNotFound, msg)
}

// NotFoundMsg sends a 404 error with a custom message.
func NotFoundMsg(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// UnprocessableEntity sends a 422 error response.
func UnprocessableEntity(c *gin.Context, message string) {
	Error(c, http.StatusUnprocessableEntity, message)
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	Error(c, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// InternalError sends a 500 error response. The real error is logged by the
// request middleware, never leaked to the client.
func InternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
}
