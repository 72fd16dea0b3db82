package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	// Should not panic
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationErrors(t *testing.T) {
	type input struct {
		ProductID string `json:"product_id" binding:"required,uuid"`
		Quantity  int64  `json:"quantity" binding:"required,min=1"`
	}

	SetupValidator()

	err := binding.Validator.ValidateStruct(input{ProductID: "nope", Quantity: 0})
	require.Error(t, err)

	resp := FormatValidationErrors(err.(validator.ValidationErrors), "req-123")
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)

	fields := map[string]string{}
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Contains(t, fields["product_id"], "UUID")
	assert.Contains(t, fields["quantity"], "required")
}

func TestHandleValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	type input struct {
		Name string `json:"name" binding:"required"`
	}

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var in input
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "abc-123")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), dto.ErrCodeValidation)
	assert.Contains(t, recorder.Body.String(), "abc-123")
	assert.Contains(t, recorder.Body.String(), "name")
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("honors incoming header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, c.GetString("request_id"))
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", "incoming-id")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, "incoming-id", recorder.Body.String())
		assert.Equal(t, "incoming-id", recorder.Header().Get("X-Request-ID"))
	})

	t.Run("generates one when absent", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, c.GetString("request_id"))
		})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.NotEmpty(t, recorder.Body.String())
		assert.Equal(t, recorder.Body.String(), recorder.Header().Get("X-Request-ID"))
	})
}
