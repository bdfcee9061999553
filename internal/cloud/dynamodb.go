package cloud

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

// ErrAlertNotFound is returned when acknowledging an unknown alert.
var ErrAlertNotFound = errors.New("alert not found")

type DynamoDBAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// AlertStore keeps alert records in a DynamoDB table keyed by alertId with
// a facilityId-timestamp index.
type AlertStore struct {
	svc   DynamoDBAPI
	table string
}

func NewAlertStore(cfg aws.Config, table string) *AlertStore {
	return NewAlertStoreWithAPI(dynamodb.NewFromConfig(cfg), table)
}

func NewAlertStoreWithAPI(svc DynamoDBAPI, table string) *AlertStore {
	return &AlertStore{svc: svc, table: table}
}

func (c *AlertStore) CreateAlert(ctx context.Context, alert domain.Alert) error {
	item, err := attributevalue.MarshalMap(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetAlerts returns a facility's alerts newest first, optionally filtered
// by severity.
func (c *AlertStore) GetAlerts(ctx context.Context, facilityID, severity string) ([]domain.Alert, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		IndexName:              aws.String("facilityId-timestamp-index"),
		KeyConditionExpression: aws.String("facilityId = :fid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fid": &types.AttributeValueMemberS{Value: facilityID},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if severity != "" {
		input.FilterExpression = aws.String("severity = :sev")
		input.ExpressionAttributeValues[":sev"] = &types.AttributeValueMemberS{Value: severity}
	}

	result, err := c.svc.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	alerts := []domain.Alert{}
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &alerts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alerts: %w", err)
	}
	return alerts, nil
}

func (c *AlertStore) AcknowledgeAlert(ctx context.Context, alertID string) error {
	_, err := c.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"alertId": &types.AttributeValueMemberS{Value: alertID},
		},
		UpdateExpression:    aws.String("SET acknowledged = :ack, acknowledgedAt = :time"),
		ConditionExpression: aws.String("attribute_exists(alertId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ack":  &types.AttributeValueMemberBOOL{Value: true},
			":time": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("alert %s: %w", alertID, ErrAlertNotFound)
		}
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return nil
}
