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

package model

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to API clients. The HTTP layer owns the
// code-to-status mapping; services only attach codes.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeRateLimit       = "RATE_LIMIT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeDatabase        = "DATABASE_ERROR"
)

// ServiceError is an error carrying a stable client-facing code. Services
// return it for failures the API layer must translate; anything else maps
// to CodeInternal.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError builds a ServiceError with an optional wrapped cause.
func NewServiceError(code, message string, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: cause}
}

// ValidationError is shorthand for a CodeValidation ServiceError.
func ValidationError(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message}
}

// NotFoundError is shorthand for a CodeNotFound ServiceError.
func NotFoundError(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message}
}

// CodeOf extracts the stable code from err, or CodeInternal when err carries
// no ServiceError in its chain.
func CodeOf(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeInternal
}
