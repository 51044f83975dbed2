package dynamo

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDDBClient is an in-memory DynamoDB table keyed by (run_id, rank).
type mockDDBClient struct {
	mu       sync.Mutex
	items    map[string]map[int]map[string]types.AttributeValue
	pageSize int
	queries  int
	queryErr error
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[int]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runID := params.Item[attrRunID].(*types.AttributeValueMemberS).Value
	rank, err := strconv.Atoi(params.Item[attrRank].(*types.AttributeValueMemberN).Value)
	if err != nil {
		return nil, err
	}

	part, ok := m.items[runID]
	if !ok {
		part = make(map[int]map[string]types.AttributeValue)
		m.items[runID] = part
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(#rank)" {
		if _, exists := part[rank]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	part[rank] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries++
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	runID := params.ExpressionAttributeValues[":run"].(*types.AttributeValueMemberS).Value
	part := m.items[runID]

	ranks := make([]int, 0, len(part))
	for r := range part {
		ranks = append(ranks, r)
	}
	slices.Sort(ranks)

	if params.ExclusiveStartKey != nil {
		last, err := strconv.Atoi(params.ExclusiveStartKey[attrRank].(*types.AttributeValueMemberN).Value)
		if err != nil {
			return nil, err
		}
		i, _ := slices.BinarySearch(ranks, last+1)
		ranks = ranks[i:]
	}

	out := &dynamodb.QueryOutput{}
	if m.pageSize > 0 && len(ranks) > m.pageSize {
		ranks = ranks[:m.pageSize]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			attrRunID: &types.AttributeValueMemberS{Value: runID},
			attrRank:  &types.AttributeValueMemberN{Value: strconv.Itoa(ranks[len(ranks)-1])},
		}
	}
	for _, r := range ranks {
		out.Items = append(out.Items, part[r])
	}
	return out, nil
}

func (m *mockDDBClient) put(runID string, rank int, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	part, ok := m.items[runID]
	if !ok {
		part = make(map[int]map[string]types.AttributeValue)
		m.items[runID] = part
	}
	part[rank] = map[string]types.AttributeValue{
		attrRunID: &types.AttributeValueMemberS{Value: runID},
		attrRank:  &types.AttributeValueMemberN{Value: strconv.Itoa(rank)},
		attrValue: &types.AttributeValueMemberN{Value: value},
	}
}
