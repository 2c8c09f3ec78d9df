package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const skSession = "SESSION#"

// dynamodbAPI is the minimal DynamoDB interface required by DynamoSessionStore.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoSessionStore persists the user → conversation mapping in a DynamoDB
// table keyed by PK/SK, so the mapping survives Lambda cold starts and is
// shared across concurrent instances.
type DynamoSessionStore struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// NewDynamoSessionStore creates a store on tableName. A positive ttl sets a
// ttl attribute on every write; zero keeps entries forever.
func NewDynamoSessionStore(api dynamodbAPI, tableName string, ttl time.Duration) (*DynamoSessionStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &DynamoSessionStore{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

func userPK(userID string) string {
	return "USER#" + userID
}

func (s *DynamoSessionStore) key(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: skSession},
	}
}

func (s *DynamoSessionStore) Get(ctx context.Context, userID string) (string, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return "", false, errEmptyUserID
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("repository: session Get: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}
	convID, err := strAttr(out.Item, "conversationId")
	if err != nil {
		return "", false, fmt.Errorf("repository: session Get decode: %w", err)
	}
	return convID, true, nil
}

// Set overwrites the mapping unconditionally (last write wins).
func (s *DynamoSessionStore) Set(ctx context.Context, userID, conversationID string) error {
	if strings.TrimSpace(userID) == "" {
		return errEmptyUserID
	}
	now := s.now().UTC()
	item := s.key(userID)
	item["userId"] = &types.AttributeValueMemberS{Value: userID}
	item["conversationId"] = &types.AttributeValueMemberS{Value: conversationID}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}
	if s.ttl > 0 {
		item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(s.ttl).Unix(), 10)}
	}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: session Set: %w", err)
	}
	return nil
}

// Delete removes the mapping and reports whether one existed.
func (s *DynamoSessionStore) Delete(ctx context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, errEmptyUserID
	}
	out, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          s.key(userID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("repository: session Delete: %w", err)
	}
	return out != nil && len(out.Attributes) > 0, nil
}

func (s *DynamoSessionStore) Close() error { return nil }

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	str, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return str.Value, nil
}
