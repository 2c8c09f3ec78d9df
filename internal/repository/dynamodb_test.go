package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	getOut          *dynamodb.GetItemOutput
	getErr          error
	putErr          error
	deleteOut       *dynamodb.DeleteItemOutput
	deleteErr       error
	lastGetInput    *dynamodb.GetItemInput
	lastPutInput    *dynamodb.PutItemInput
	lastDeleteInput *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDeleteInput = in
	return f.deleteOut, f.deleteErr
}

func sessionItem(userID, convID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK":             &types.AttributeValueMemberS{Value: skSession},
		"conversationId": &types.AttributeValueMemberS{Value: convID},
	}
}

func mustNewDynamoStore(t *testing.T, db *fakeDynamo, ttl time.Duration) *DynamoSessionStore {
	t.Helper()
	s, err := NewDynamoSessionStore(db, "sessions", ttl)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestDynamoGet_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: sessionItem("u1", "conv-1")}}
	s := mustNewDynamoStore(t, db, 0)

	convID, ok, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "conv-1", convID)
	require.True(t, *db.lastGetInput.ConsistentRead)
	require.Equal(t, "USER#u1", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoGet_Missing(t *testing.T) {
	s := mustNewDynamoStore(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}, 0)
	_, ok, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDynamoGet_Errors(t *testing.T) {
	s := mustNewDynamoStore(t, &fakeDynamo{getErr: errors.New("throttled")}, 0)
	_, _, err := s.Get(context.Background(), "u1")
	require.ErrorContains(t, err, "session Get")

	item := sessionItem("u1", "conv-1")
	item["conversationId"] = &types.AttributeValueMemberN{Value: "1"}
	s = mustNewDynamoStore(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}, 0)
	_, _, err = s.Get(context.Background(), "u1")
	require.ErrorContains(t, err, "not a string")

	_, _, err = s.Get(context.Background(), " ")
	require.ErrorIs(t, err, errEmptyUserID)
}

func TestDynamoSet_WritesItem(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamoStore(t, db, 0)

	require.NoError(t, s.Set(context.Background(), "u1", "conv-1"))
	item := db.lastPutInput.Item
	require.Equal(t, "sessions", *db.lastPutInput.TableName)
	require.Equal(t, "conv-1", item["conversationId"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "2026-10-01T12:00:00Z", item["updatedAt"].(*types.AttributeValueMemberS).Value)
	require.NotContains(t, item, "ttl")
	require.Nil(t, db.lastPutInput.ConditionExpression)
}

func TestDynamoSet_WithTTL(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamoStore(t, db, 24*time.Hour)

	require.NoError(t, s.Set(context.Background(), "u1", "conv-1"))
	want := time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC).Unix()
	require.Equal(t, strconv.FormatInt(want, 10), db.lastPutInput.Item["ttl"].(*types.AttributeValueMemberN).Value)
}

func TestDynamoSet_Error(t *testing.T) {
	s := mustNewDynamoStore(t, &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}, 0)
	err := s.Set(context.Background(), "u1", "conv-1")
	require.ErrorContains(t, err, "session Set")
}

func TestDynamoDelete(t *testing.T) {
	db := &fakeDynamo{deleteOut: &dynamodb.DeleteItemOutput{Attributes: sessionItem("u1", "conv-1")}}
	s := mustNewDynamoStore(t, db, 0)

	found, err := s.Delete(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.ReturnValueAllOld, db.lastDeleteInput.ReturnValues)

	db.deleteOut = &dynamodb.DeleteItemOutput{}
	found, err = s.Delete(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, found)

	db.deleteErr = errors.New("boom")
	_, err = s.Delete(context.Background(), "u1")
	require.ErrorContains(t, err, "session Delete")
}

func TestNewDynamoSessionStore_Validation(t *testing.T) {
	_, err := NewDynamoSessionStore(nil, "sessions", 0)
	require.ErrorContains(t, err, "must not be nil")

	_, err = NewDynamoSessionStore(&fakeDynamo{}, " ", 0)
	require.ErrorContains(t, err, "must not be empty")
}

func TestUserPK(t *testing.T) {
	require.Equal(t, "USER#29:1abc", userPK("29:1abc"))
}
