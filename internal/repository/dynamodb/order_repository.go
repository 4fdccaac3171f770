package dynamodb

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
	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
)

type Store struct {
	client    API
	tableName string
}

var _ repository.Store = (*Store)(nil)

func NewStore(client API, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return err
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func (s *Store) nextOrderID(ctx context.Context) (int, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              key(counterPK, counterSK),
		UpdateExpression: aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment order counter: %w", err)
	}
	seq, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("order counter returned no sequence")
	}
	id, err := strconv.Atoi(seq.Value)
	if err != nil {
		return 0, fmt.Errorf("parse order counter: %w", err)
	}
	return id, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	id, err := s.nextOrderID(ctx)
	if err != nil {
		return err
	}
	order.ID = id
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt

	av, err := attributevalue.MarshalMap(newOrderRecord(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (s *Store) getOrderRecord(ctx context.Context, id int) (*orderRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(orderPK(id), orderSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, repository.ErrOrderNotFound
	}

	var rec orderRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	rec, err := s.getOrderRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.toDomain()
}

// SaveOrder writes the order item and, when the latest transaction is new,
// its history item in one TransactWriteItems call. The write is conditioned on
// the stored order still being unpaid.
func (s *Store) SaveOrder(ctx context.Context, order *domain.Order) error {
	stored, err := s.getOrderRecord(ctx, order.ID)
	if err != nil {
		return err
	}
	if stored.Paid {
		return repository.ErrOrderPaid
	}

	now := time.Now().UTC()
	order.UpdatedAt = now

	av, err := attributevalue.MarshalMap(newOrderRecord(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(s.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_exists(PK) AND paid = :unpaid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":unpaid": &types.AttributeValueMemberBOOL{Value: false},
			},
		},
	}}

	if t := order.Transaction; t != nil && (stored.Transaction == nil || stored.Transaction.ID != t.ID) {
		txAV, err := attributevalue.MarshalMap(transactionRecord{
			PK:            orderPK(order.ID),
			SK:            transactionSK(now, t.ID),
			ID:            t.ID,
			Success:       t.Success,
			AmountCharged: t.AmountCharged.String(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal transaction: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                txAV,
				ConditionExpression: aws.String("attribute_not_exists(SK)"),
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && len(canceled.CancellationReasons) > 0 &&
			aws.ToString(canceled.CancellationReasons[0].Code) == "ConditionalCheckFailed" {
			return repository.ErrOrderPaid
		}
		return fmt.Errorf("failed to save order %d: %w", order.ID, err)
	}
	return nil
}

// DeleteOrder removes the order item and its payment history. Deleting a
// missing order is a no-op.
func (s *Store) DeleteOrder(ctx context.Context, id int) error {
	keys, err := s.queryKeys(ctx, orderPK(id))
	if err != nil {
		return err
	}
	return s.batchDelete(ctx, keys)
}

// TransactionHistory lists every payment attempt recorded for an order,
// oldest first.
func (s *Store) TransactionHistory(ctx context.Context, orderID int) ([]domain.Transaction, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :txn)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: orderPK(orderID)},
			":txn": &types.AttributeValueMemberS{Value: transactionSKP},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	var records []transactionRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, err
	}
	history := make([]domain.Transaction, 0, len(records))
	for _, r := range records {
		t, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		history = append(history, t)
	}
	return history, nil
}
