package lambda

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
)

// Route is a method and path prefix a function answers
type Route struct {
	Method string
	Prefix string
}

// Proxy serves API Gateway events through a gin router. Events outside the
// route list never reach the router.
type Proxy struct {
	adapter *ginadapter.GinLambda
	routes  []Route
}

// NewProxy wraps engine so that only routes are reachable
func NewProxy(engine *gin.Engine, routes []Route) *Proxy {
	return &Proxy{adapter: ginadapter.New(engine), routes: routes}
}

// Allowed reports whether the method and path match one of the proxy's routes
func (p *Proxy) Allowed(method, path string) bool {
	for _, r := range p.routes {
		if r.Method == method && strings.HasPrefix(path, r.Prefix) {
			return true
		}
	}
	return false
}

// Handle translates the event into an http request, runs it through the
// router and returns the captured response
func (p *Proxy) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if !p.Allowed(event.HTTPMethod, event.Path) {
		return JSONResponse(http.StatusNotFound, `{"error": "Not found"}`), nil
	}
	return p.adapter.ProxyWithContext(ctx, event)
}

// JSONResponse builds a response with a literal JSON body
func JSONResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}
