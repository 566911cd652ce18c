package controller

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"jobdispatch-backend/middelware"
	"jobdispatch-backend/models"
	"jobdispatch-backend/services"
	"jobdispatch-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusFor maps a service error kind to its HTTP status
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindPrecondition, services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the response envelope. Internal failures are
// logged and their cause is not exposed.
func respondError(c *gin.Context, log logger.Logger, message string, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		se = &services.ServiceError{Kind: services.KindInternal, Message: "unexpected error", Err: err}
	}
	status := statusFor(se.Kind)

	apiErr := &models.APIError{
		Type:    string(se.Kind),
		Details: se.Message,
		Fields:  se.Fields,
	}
	if len(se.Fields) == 1 {
		for field := range se.Fields {
			apiErr.Field = field
		}
	}

	if status >= http.StatusInternalServerError {
		log.Errorf("%s: %v", message, err)
	} else {
		log.Warnf("%s: %v", message, err)
	}

	if se.Kind == services.KindTransient {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, models.APIResponse{
		Status:  "error",
		Code:    status,
		Message: message,
		Error:   apiErr,
	})
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Status:  "success",
		Code:    status,
		Message: message,
		Data:    data,
	})
}

func respondBadRequest(c *gin.Context, message, details string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Status:  "error",
		Code:    http.StatusBadRequest,
		Message: message,
		Error: &models.APIError{
			Type:    string(services.KindValidation),
			Details: details,
			Fields:  fields,
		},
	})
}

// actorOrAbort reads the acting user set by the auth middleware
func actorOrAbort(c *gin.Context, log logger.Logger) (models.Actor, bool) {
	actor, ok := middelware.ActorFromContext(c)
	if !ok {
		log.Error("JWT claims not found in context")
		c.JSON(http.StatusUnauthorized, models.APIResponse{
			Status:  "error",
			Code:    http.StatusUnauthorized,
			Message: "Authentication required",
			Error: &models.APIError{
				Type:    "AuthenticationError",
				Details: "User not authenticated",
			},
		})
		return models.Actor{}, false
	}
	return actor, true
}

// requestValidator wraps validator/v10 with json field names in messages
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Struct validates req and returns readable per-field messages
func (rv *requestValidator) Struct(req interface{}) map[string]string {
	err := rv.validate.Struct(req)
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		fields["request"] = err.Error()
		return fields
	}
	for _, fieldError := range validationErrors {
		name := fieldError.Field()
		switch fieldError.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "min":
			fields[name] = name + " must be at least " + fieldError.Param()
		case "max":
			fields[name] = name + " must be at most " + fieldError.Param()
		case "email":
			fields[name] = name + " must be a valid email address"
		case "oneof":
			fields[name] = name + " must be one of: " + strings.ReplaceAll(fieldError.Param(), " ", ", ")
		default:
			fields[name] = name + " is invalid"
		}
	}
	return fields
}

// bindJSON decodes and validates the body, writing a 400 on failure
func bindJSON(c *gin.Context, rv *requestValidator, log logger.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Warnf("Failed to bind JSON: %v", err)
		respondBadRequest(c, "Invalid request", err.Error(), nil)
		return false
	}
	if fields := rv.Struct(req); fields != nil {
		respondBadRequest(c, "Validation failed", "one or more fields are invalid", fields)
		return false
	}
	return true
}
