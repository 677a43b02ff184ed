// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the HTTP surface of the content service. This file
// defines the uniform response envelope and the mapping from service error
// codes to HTTP statuses.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/faithlence/faithlence/internal/core/model"
	"github.com/gin-gonic/gin"
)

// Envelope is the shape of every API response. Exactly one of Data and Error
// is set, matching Success.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ErrorBody carries the stable code and a human-readable message.
type ErrorBody struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// codeStatus maps service error codes onto HTTP statuses. Upstream provider
// failure is a 503 (the service will recover when the provider does); store
// failure on a read path is a 500. Unknown codes fall back to 500.
var codeStatus = map[string]int{
	model.CodeValidation:      http.StatusBadRequest,
	model.CodeInvalidInput:    http.StatusBadRequest,
	model.CodeNotFound:        http.StatusNotFound,
	model.CodeUnauthorized:    http.StatusUnauthorized,
	model.CodeForbidden:       http.StatusForbidden,
	model.CodeConflict:        http.StatusConflict,
	model.CodeRateLimit:       http.StatusTooManyRequests,
	model.CodeExternalService: http.StatusServiceUnavailable,
	model.CodeDatabase:        http.StatusInternalServerError,
	model.CodeInternal:        http.StatusInternalServerError,
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// respondData writes a success envelope with the given status.
func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data, Timestamp: now()})
}

// respondError translates err into an error envelope. ServiceErrors keep
// their code and message; anything else is reported as internal without
// leaking the underlying error text.
func respondError(c *gin.Context, err error) {
	code := model.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "internal server error"
	var svcErr *model.ServiceError
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	c.JSON(status, Envelope{
		Success:   false,
		Error:     &ErrorBody{Message: message, Code: code},
		Timestamp: now(),
	})
}

// respondValidation is shorthand for a 400 with CodeValidation.
func respondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success:   false,
		Error:     &ErrorBody{Message: message, Code: model.CodeValidation},
		Timestamp: now(),
	})
}

// respondTooLarge is the 413 shape for oversized direct uploads.
func respondTooLarge(c *gin.Context, message string) {
	c.JSON(http.StatusRequestEntityTooLarge, Envelope{
		Success:   false,
		Error:     &ErrorBody{Message: message, Code: model.CodeInvalidInput},
		Timestamp: now(),
	})
}
