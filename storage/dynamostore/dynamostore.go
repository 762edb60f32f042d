// Package dynamostore persists payloads in a DynamoDB table.
//
// Items are keyed by a namespace (hash key) and the storage key (range key),
// so several applications can share a table.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	namespaceAttr = "Namespace"
	keyAttr       = "Key"
	valueAttr     = "Value"
)

// API is the subset of *dynamodb.Client used by Store.
type API interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store is a DynamoDB-backed storage backend.
type Store struct {
	// Client is the DynamoDB client to use.
	Client API

	// Table is the name of the table holding the items.
	Table string

	// Namespace is the hash key shared by every item this store writes.
	Namespace string

	// Context is the parent of every request context. Defaults to
	// context.Background().
	Context context.Context

	// Timeout bounds every request. Zero disables the bound.
	Timeout time.Duration

	// DecorateGetItem is an optional function called before each "GetItem"
	// request. It may modify the input in place and returns options applied
	// to the request.
	DecorateGetItem func(*dynamodb.GetItemInput) []func(*dynamodb.Options)

	// DecoratePutItem is the "PutItem" equivalent of DecorateGetItem.
	DecoratePutItem func(*dynamodb.PutItemInput) []func(*dynamodb.Options)

	// DecorateDeleteItem is the "DeleteItem" equivalent of DecorateGetItem.
	DecorateDeleteItem func(*dynamodb.DeleteItemInput) []func(*dynamodb.Options)
}

func (s *Store) GetItem(key string) (string, bool, error) {
	ctx, cancel := s.requestContext()
	defer cancel()

	out, err := do(ctx, s.Client.GetItem, s.DecorateGetItem, &dynamodb.GetItemInput{
		TableName:            aws.String(s.Table),
		Key:                  s.itemKey(key),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("#V"),
		ExpressionAttributeNames: map[string]string{
			"#V": valueAttr,
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("dynamostore: get %q: %w", key, err)
	}
	if out.Item == nil {
		return "", false, nil
	}

	v, err := getAttr[*types.AttributeValueMemberS](out.Item, valueAttr)
	if err != nil {
		return "", false, fmt.Errorf("dynamostore: get %q: %w", key, err)
	}
	return v.Value, true, nil
}

func (s *Store) SetItem(key, value string) error {
	ctx, cancel := s.requestContext()
	defer cancel()

	item := s.itemKey(key)
	item[valueAttr] = &types.AttributeValueMemberS{Value: value}

	if _, err := do(ctx, s.Client.PutItem, s.DecoratePutItem, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamostore: put %q: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	ctx, cancel := s.requestContext()
	defer cancel()

	if _, err := do(ctx, s.Client.DeleteItem, s.DecorateDeleteItem, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.Table),
		Key:       s.itemKey(key),
	}); err != nil {
		return fmt.Errorf("dynamostore: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		namespaceAttr: &types.AttributeValueMemberS{Value: s.Namespace},
		keyAttr:       &types.AttributeValueMemberS{Value: key},
	}
}

func (s *Store) requestContext() (context.Context, context.CancelFunc) {
	parent := s.Context
	if parent == nil {
		parent = context.Background()
	}
	if s.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.Timeout)
}

// CreateTable creates a table suitable for Store. An existing table is not an
// error.
func CreateTable(ctx context.Context, client *dynamodb.Client, table string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(namespaceAttr), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(keyAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(namespaceAttr), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(keyAttr), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if errors.As(err, new(*types.ResourceInUseException)) {
		return nil
	}
	return err
}

func do[In, Out any](
	ctx context.Context,
	fn func(context.Context, *In, ...func(*dynamodb.Options)) (Out, error),
	dec func(*In) []func(*dynamodb.Options),
	in *In,
) (Out, error) {
	var options []func(*dynamodb.Options)
	if dec != nil {
		options = dec(in)
	}
	return fn(ctx, in, options...)
}

func getAttr[T types.AttributeValue](
	item map[string]types.AttributeValue,
	name string,
) (v T, err error) {
	a, ok := item[name]
	if !ok {
		return v, fmt.Errorf("item is corrupt: missing %q attribute", name)
	}

	v, ok = a.(T)
	if !ok {
		return v, fmt.Errorf(
			"item is corrupt: %q attribute should be %s not %s",
			name,
			reflect.TypeOf(v),
			reflect.TypeOf(a),
		)
	}
	return v, nil
}
