package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Ledger records delivered notification IDs so redelivered queue messages
// are not emailed twice.
type Ledger interface {
	Delivered(ctx context.Context, id string) (bool, error)
	MarkDelivered(ctx context.Context, n Notification) error
}

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type deliveryRecord struct {
	NotificationID string `dynamodbav:"notificationId"`
	Kind           string `dynamodbav:"kind"`
	Recipient      string `dynamodbav:"recipient"`
	DeliveredAt    int64  `dynamodbav:"deliveredAt"`
	ExpiresAt      int64  `dynamodbav:"expiresAt"`
}

const ledgerRetention = 14 * 24 * time.Hour

// DynamoLedger stores delivery records in a DynamoDB table keyed by
// notificationId. Records expire through the table TTL on expiresAt.
type DynamoLedger struct {
	client dynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoLedger(client dynamoAPI, table string) *DynamoLedger {
	if client == nil {
		panic("notify: dynamodb client required")
	}
	if table == "" {
		panic("notify: ledger table required")
	}
	return &DynamoLedger{client: client, table: table, now: time.Now}
}

func (l *DynamoLedger) Delivered(ctx context.Context, id string) (bool, error) {
	out, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.table),
		Key:            map[string]types.AttributeValue{"notificationId": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("notify: ledger lookup: %w", err)
	}
	return len(out.Item) > 0, nil
}

func (l *DynamoLedger) MarkDelivered(ctx context.Context, n Notification) error {
	now := l.now().UTC()
	item, err := attributevalue.MarshalMap(deliveryRecord{
		NotificationID: n.ID,
		Kind:           string(n.Kind),
		Recipient:      n.To,
		DeliveredAt:    now.Unix(),
		ExpiresAt:      now.Add(ledgerRetention).Unix(),
	})
	if err != nil {
		return fmt.Errorf("notify: marshal delivery record: %w", err)
	}
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(notificationId)"),
	})
	if err != nil {
		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) {
			return nil
		}
		return fmt.Errorf("notify: ledger put: %w", err)
	}
	return nil
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu        sync.Mutex
	delivered map[string]Kind
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{delivered: make(map[string]Kind)}
}

func (l *MemoryLedger) Delivered(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.delivered[id]
	return ok, nil
}

func (l *MemoryLedger) MarkDelivered(_ context.Context, n Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delivered[n.ID] = n.Kind
	return nil
}
