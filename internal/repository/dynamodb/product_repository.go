package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
	"github.com/google/uuid"
)

// BatchWriteItem accepts at most 25 requests per call.
const batchSize = 25

const maxBatchAttempts = 5

// catalogPointer returns the active catalog epoch and the epoch it replaced.
// Both are "" when no catalog was ever loaded.
func (s *Store) catalogPointer(ctx context.Context) (current, previous string, err error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(catalogPK, catalogSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", "", fmt.Errorf("get catalog pointer: %w", err)
	}
	if v, ok := out.Item["epoch"].(*types.AttributeValueMemberS); ok {
		current = v.Value
	}
	if v, ok := out.Item["previous"].(*types.AttributeValueMemberS); ok {
		previous = v.Value
	}
	return current, previous, nil
}

func (s *Store) currentEpoch(ctx context.Context) (string, error) {
	current, _, err := s.catalogPointer(ctx)
	return current, err
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	epoch, err := s.currentEpoch(ctx)
	if err != nil {
		return nil, err
	}
	products := []domain.Product{}
	if epoch == "" {
		return products, nil
	}

	items, err := s.queryItems(ctx, catalogEpochPK(epoch))
	if err != nil {
		return nil, err
	}
	var records []productRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		p, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int) (domain.Product, error) {
	epoch, err := s.currentEpoch(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if epoch == "" {
		return domain.Product{}, repository.ErrProductNotFound
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(catalogEpochPK(epoch), productSK(id)),
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	if len(out.Item) == 0 {
		return domain.Product{}, repository.ErrProductNotFound
	}
	var rec productRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return domain.Product{}, err
	}
	return rec.toDomain()
}

// ReplaceProducts writes the new catalog under a fresh epoch, then flips the
// catalog pointer. Readers resolve the pointer first, so they see either the
// whole previous epoch or the whole new one. The replaced epoch stays intact
// until the next refresh, so a reader that resolved the pointer just before
// the flip still finds every product; only the epoch before it is removed.
func (s *Store) ReplaceProducts(ctx context.Context, products []domain.Product) error {
	current, stale, err := s.catalogPointer(ctx)
	if err != nil {
		return err
	}

	epoch := uuid.NewString()
	requests := make([]types.WriteRequest, 0, len(products))
	for _, p := range products {
		if p.Weight != nil && *p.Weight <= 0 {
			return fmt.Errorf("insert product %d: weight must be positive", p.ID)
		}
		av, err := attributevalue.MarshalMap(newProductRecord(epoch, p))
		if err != nil {
			return fmt.Errorf("failed to marshal product %d: %w", p.ID, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	if err := s.batchWrite(ctx, requests); err != nil {
		return fmt.Errorf("write catalog epoch %s: %w", epoch, err)
	}

	pointer := map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: catalogPK},
		"SK":    &types.AttributeValueMemberS{Value: catalogSK},
		"epoch": &types.AttributeValueMemberS{Value: epoch},
	}
	if current != "" {
		pointer["previous"] = &types.AttributeValueMemberS{Value: current}
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      pointer,
	})
	if err != nil {
		return fmt.Errorf("flip catalog pointer: %w", err)
	}

	if stale != "" && stale != current {
		keys, err := s.queryKeys(ctx, catalogEpochPK(stale))
		if err == nil {
			err = s.batchDelete(ctx, keys)
		}
		if err != nil {
			return fmt.Errorf("%w: epoch %s: %v", repository.ErrCatalogCleanup, stale, err)
		}
	}
	return nil
}

func (s *Store) queryItems(ctx context.Context, pk string) ([]map[string]types.AttributeValue, error) {
	var (
		items []map[string]types.AttributeValue
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", pk, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		start = out.LastEvaluatedKey
	}
}

func (s *Store) queryKeys(ctx context.Context, pk string) ([]map[string]types.AttributeValue, error) {
	items, err := s.queryItems(ctx, pk)
	if err != nil {
		return nil, err
	}
	keys := make([]map[string]types.AttributeValue, 0, len(items))
	for _, item := range items {
		keys = append(keys, map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]})
	}
	return keys, nil
}

func (s *Store) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
	requests := make([]types.WriteRequest, 0, len(keys))
	for _, k := range keys {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: k}})
	}
	return s.batchWrite(ctx, requests)
}

// batchWrite sends requests in chunks and resubmits unprocessed items.
func (s *Store) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for len(requests) > 0 {
		n := min(batchSize, len(requests))
		pending := requests[:n]
		requests = requests[n:]

		for attempt := 1; len(pending) > 0; attempt++ {
			if attempt > maxBatchAttempts {
				return fmt.Errorf("batch write: %d items left unprocessed", len(pending))
			}
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.tableName: pending},
			})
			if err != nil {
				return fmt.Errorf("batch write: %w", err)
			}
			pending = out.UnprocessedItems[s.tableName]
		}
	}
	return nil
}
