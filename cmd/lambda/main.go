package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"social-activity-recommender/internal/api"
	"social-activity-recommender/internal/app"
	"social-activity-recommender/internal/config"
	"social-activity-recommender/internal/logging"
)

// routeServer is the part of api.Handler the gateway calls
type routeServer interface {
	Serve(ctx context.Context, method, path string, query map[string]string, body []byte) api.Response
}

// gateway adapts API Gateway proxy events to the shared route table
type gateway struct {
	routes routeServer
	logger *logging.Logger
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
		"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
		"Content-Type":                 "application/json",
	}
}

func (g *gateway) handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders()

	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	}

	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			g.logger.Warn("[API] undecodable request body", "path", request.Path, "error", err)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusBadRequest,
				Headers:    headers,
				Body:       `{"success":false,"error":"Invalid request body"}`,
			}, nil
		}
		body = decoded
	}

	resp := g.routes.Serve(ctx, request.HTTPMethod, request.Path, request.QueryStringParameters, body)
	g.logger.Info("[API] request", "method", request.HTTPMethod, "path", request.Path, "status", resp.Status)

	bodyJSON, err := json.Marshal(resp.Body)
	if err != nil {
		g.logger.Error("[API] failed to marshal response", "path", request.Path, "error", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"success":false,"error":"Internal server error"}`,
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers:    headers,
		Body:       string(bodyJSON),
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Environment)
	if err != nil {
		panic(err)
	}

	application, err := app.New(context.Background(), cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("[API] failed to initialize", "error", err)
	}

	g := &gateway{routes: application.Handler, logger: logger}
	lambda.Start(g.handleRequest)
}
