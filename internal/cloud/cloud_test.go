package cloud

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/ml"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func tinyArtifact(t *testing.T) *ml.Artifact {
	t.Helper()
	opts := ml.DefaultBootstrapOptions()
	opts.Samples = 200
	opts.Forest.Trees = 3
	a, err := ml.Bootstrap(context.Background(), "v1.0", opts)
	require.NoError(t, err)
	return a
}

func TestS3ArtifactStore_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := NewS3ArtifactStoreWithClient(fake, "models-bucket")
	ctx := context.Background()

	_, err := store.Load(ctx, "v1.0")
	require.ErrorIs(t, err, ml.ErrArtifactNotFound)

	a := tinyArtifact(t)
	require.NoError(t, store.Save(ctx, "v1.0", a))
	assert.Contains(t, fake.objects, "models/failure_predictor_v1.0.json")

	loaded, err := store.Load(ctx, "v1.0")
	require.NoError(t, err)
	assert.Equal(t, "v1.0-bootstrap", loaded.Version)
	assert.True(t, loaded.Bootstrapped)
}

func TestS3ArtifactStore_LoadFault(t *testing.T) {
	store := NewS3ArtifactStoreWithClient(&fakeS3{getErr: errors.New("AccessDenied")}, "b")

	_, err := store.Load(context.Background(), "v1.0")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ml.ErrArtifactNotFound)
}

func TestS3ArtifactStore_CorruptObject(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"models/failure_predictor_v1.0.json": []byte(`{"channels":["x"]}`)}}
	store := NewS3ArtifactStoreWithClient(fake, "b")

	_, err := store.Load(context.Background(), "v1.0")
	assert.Error(t, err)
}

type fakeSNS struct {
	in  *sns.PublishInput
	err error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSClient_SendAlert(t *testing.T) {
	fake := &fakeSNS{}
	c := NewSNSClientWithAPI(fake, "arn:aws:sns:us-east-1:123:alerts")

	id, err := c.SendAlert(context.Background(), "subject", "body")

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:alerts", aws.ToString(fake.in.TopicArn))
	assert.Equal(t, "subject", aws.ToString(fake.in.Subject))

	fake.err = errors.New("throttled")
	_, err = c.SendAlert(context.Background(), "s", "b")
	assert.ErrorContains(t, err, "throttled")
}

type fakeDynamo struct {
	put    *dynamodb.PutItemInput
	query  *dynamodb.QueryInput
	update *dynamodb.UpdateItemInput
	items  []map[string]dbtypes.AttributeValue
	updErr error
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.put = in
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.query = in
	return &dynamodb.QueryOutput{Items: f.items}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.update = in
	return &dynamodb.UpdateItemOutput{}, f.updErr
}

func TestAlertStore_CreateAndQuery(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewAlertStoreWithAPI(fake, "Alerts")
	ctx := context.Background()

	alert := domain.Alert{
		AlertID:            "a-1",
		FacilityID:         "plant-1",
		EquipmentID:        "PUMP-001",
		Timestamp:          1700000000,
		Severity:           "critical",
		Type:               domain.AlertFailureRisk,
		FailureProbability: 0.91,
		RULDays:            2,
	}
	require.NoError(t, store.CreateAlert(ctx, alert))
	assert.Equal(t, "Alerts", aws.ToString(fake.put.TableName))

	var stored domain.Alert
	require.NoError(t, attributevalue.UnmarshalMap(fake.put.Item, &stored))
	assert.Equal(t, alert, stored)

	alerts, err := store.GetAlerts(ctx, "plant-1", "critical")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "PUMP-001", alerts[0].EquipmentID)
	assert.Equal(t, "severity = :sev", aws.ToString(fake.query.FilterExpression))
	assert.False(t, aws.ToBool(fake.query.ScanIndexForward))

	_, err = store.GetAlerts(ctx, "plant-1", "")
	require.NoError(t, err)
	assert.Nil(t, fake.query.FilterExpression)
}

func TestAlertStore_Acknowledge(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewAlertStoreWithAPI(fake, "Alerts")

	require.NoError(t, store.AcknowledgeAlert(context.Background(), "a-1"))
	key := fake.update.Key["alertId"].(*dbtypes.AttributeValueMemberS)
	assert.Equal(t, "a-1", key.Value)

	fake.updErr = &dbtypes.ConditionalCheckFailedException{Message: aws.String("nope")}
	err := store.AcknowledgeAlert(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
