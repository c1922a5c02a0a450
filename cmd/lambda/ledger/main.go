package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"market-ledger/pkg/lambda"
)

// exposed lists the routes served by the function. Admin operations stay on
// the long-running server where the record files live.
var exposed = []lambda.Route{
	{Method: http.MethodPost, Prefix: "/api/v1/auth/login"},
	{Method: http.MethodPost, Prefix: "/api/v1/purchases"},
	{Method: http.MethodGet, Prefix: "/api/v1/profiles/search"},
	{Method: http.MethodGet, Prefix: "/api/v1/cars"},
	{Method: http.MethodGet, Prefix: "/api/v1/bikes"},
	{Method: http.MethodGet, Prefix: "/health"},
}

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	proxy, err := lambda.GetConnectionManager().Proxy(ctx, exposed)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialise container")
		return lambda.JSONResponse(http.StatusInternalServerError, `{"error": "Internal server error"}`), nil
	}

	resp, err := proxy.Handle(ctx, event)
	if err != nil {
		logrus.WithError(err).Error("Failed to serve request")
		return lambda.JSONResponse(http.StatusInternalServerError, `{"error": "Internal server error"}`), nil
	}
	return resp, nil
}

func main() {
	awslambda.Start(handler)
}
