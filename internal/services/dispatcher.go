package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdaclient "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/google/uuid"

	"social-activity-recommender/internal/logging"
)

// LambdaInvoker is the part of the Lambda client the dispatcher uses
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambdaclient.InvokeInput, optFns ...func(*lambdaclient.Options)) (*lambdaclient.InvokeOutput, error)
}

// RegenerateEvent is the payload the worker Lambda receives
type RegenerateEvent struct {
	RequestID          string `json:"requestId"`
	UserID             string `json:"userId"`
	SurveyResponseID   string `json:"surveyResponseId,omitempty"`
	CalculatedScoresID string `json:"calculatedScoresId,omitempty"`
}

// RegenerateDispatcher hands regeneration to the worker Lambda
type RegenerateDispatcher struct {
	client       LambdaInvoker
	functionName string
	logger       *logging.Logger
}

// NewRegenerateDispatcher creates a dispatcher for functionName
func NewRegenerateDispatcher(client LambdaInvoker, functionName string, logger *logging.Logger) *RegenerateDispatcher {
	return &RegenerateDispatcher{
		client:       client,
		functionName: functionName,
		logger:       logging.OrNop(logger),
	}
}

// Dispatch invokes the worker asynchronously and returns the request id
func (d *RegenerateDispatcher) Dispatch(ctx context.Context, event RegenerateEvent) (string, error) {
	if event.RequestID == "" {
		event.RequestID = uuid.New().String()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal regenerate event: %w", err)
	}

	_, err = d.client.Invoke(ctx, &lambdaclient.InvokeInput{
		FunctionName:   aws.String(d.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke regenerate worker: %w", err)
	}

	d.logger.Info("[API] regenerate dispatched", "user_id", event.UserID, "request_id", event.RequestID)
	return event.RequestID, nil
}
