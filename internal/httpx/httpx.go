// Package httpx builds the proxy-integration responses returned by every board Lambda.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/activityboards/board-lambdas/internal/apperr"
)

// CORSHeaders returns the fixed header set attached to every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
		"Access-Control-Allow-Methods": "POST,OPTIONS",
	}
}

// JSON creates a JSON response with the given status code and value.
func JSON(status int, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b, _ = json.Marshal(map[string]string{"error": "failed to encode response: " + err.Error()})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    CORSHeaders(),
		Body:       string(b),
	}
}

// Preflight answers an OPTIONS request.
func Preflight() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    CORSHeaders(),
		Body:       "",
	}
}

// Error renders err as a JSON error body with its classified status.
func Error(err error) events.APIGatewayProxyResponse {
	e := apperr.From(err)
	return JSON(e.Status, e.Body())
}
