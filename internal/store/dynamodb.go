package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const (
	documentPKPrefix = "DOC#"
	uniquePKPrefix   = "UNIQUE#"
	uniqueSK         = "UNIQUE"
	bodyAttribute    = "body"
)

// DynamoAPI is the subset of *dynamodb.Client used by the DynamoDB store.
type DynamoAPI interface {
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDB stores collections in a single table. Each document lives under
// PK=DOC#<collection>, SK=<id>; unique values are claimed by a guard item
// written in the same transaction.
type DynamoDB struct {
	client    DynamoAPI
	tableName string
	indexes   map[string]string
}

// NewDynamoDB returns a store over tableName.
func NewDynamoDB(client DynamoAPI, tableName string, indexes ...Index) *DynamoDB {
	return &DynamoDB{client: client, tableName: tableName, indexes: indexMap(indexes)}
}

func (d *DynamoDB) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	normalized, err := normalize(doc)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	id, _ := normalized[IDField].(string)
	if id == "" {
		id = uuid.NewString()
	}
	normalized[IDField] = id

	body, err := attributevalue.Marshal(map[string]any(normalized))
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName: aws.String(d.tableName),
			Item: map[string]types.AttributeValue{
				"PK":          &types.AttributeValueMemberS{Value: documentPKPrefix + collection},
				"SK":          &types.AttributeValueMemberS{Value: id},
				bodyAttribute: body,
			},
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		},
	}}
	if key, ok := uniqueValue(normalized, d.indexes[collection]); ok {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(d.tableName),
				Item: map[string]types.AttributeValue{
					"PK":    &types.AttributeValueMemberS{Value: uniquePKPrefix + collection + "#" + key},
					"SK":    &types.AttributeValueMemberS{Value: uniqueSK},
					"docId": &types.AttributeValueMemberS{Value: id},
				},
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			},
		})
	}

	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if isConditionalFailure(err) {
			return "", ErrDuplicateKey
		}
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

func (d *DynamoDB) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	normalized, err := normalize(filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	input, err := d.queryInput(collection, normalized)
	if err != nil {
		return nil, err
	}

	paginator := dynamodb.NewQueryPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("find in %s: %w", collection, err)
		}
		if len(page.Items) > 0 {
			return decodeItem(page.Items[0])
		}
	}
	return nil, ErrNotFound
}

func (d *DynamoDB) FindAll(ctx context.Context, collection string) ([]Document, error) {
	input, err := d.queryInput(collection, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0)
	paginator := dynamodb.NewQueryPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		for _, item := range page.Items {
			doc, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (d *DynamoDB) Ping(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.tableName)})
	return err
}

func (d *DynamoDB) queryInput(collection string, filter Filter) (*dynamodb.QueryInput, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: documentPKPrefix + collection},
		},
	}
	if len(filter) == 0 {
		return input, nil
	}

	names := map[string]string{"#body": bodyAttribute}
	clauses := make([]string, 0, len(filter))
	i := 0
	for field, value := range filter {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal filter %s: %w", field, err)
		}
		name := fmt.Sprintf("#f%d", i)
		placeholder := fmt.Sprintf(":v%d", i)
		names[name] = field
		input.ExpressionAttributeValues[placeholder] = av
		clauses = append(clauses, fmt.Sprintf("#body.%s = %s", name, placeholder))
		i++
	}
	input.ExpressionAttributeNames = names
	input.FilterExpression = aws.String(strings.Join(clauses, " AND "))
	return input, nil
}

func decodeItem(item map[string]types.AttributeValue) (Document, error) {
	body, ok := item[bodyAttribute]
	if !ok {
		return nil, errors.New("document item has no body")
	}
	var doc map[string]any
	if err := attributevalue.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return Document(doc), nil
}

func isConditionalFailure(err error) bool {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
		return false
	}
	var condFailed *types.ConditionalCheckFailedException
	return errors.As(err, &condFailed)
}
