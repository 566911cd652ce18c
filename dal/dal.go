package dal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoDBClient struct {
	client *dynamodb.Client
	config *models.Config
	logger logger.Logger
}

// NewDynamoDBClient creates a new DynamoDB client
func NewDynamoDBClient(ctx context.Context, cfg *models.Config, log logger.Logger) (*DynamoDBClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Use static credentials if provided
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		))
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		// Local DynamoDB
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	log.Infof("DynamoDB client initialized (region=%s, prefix=%s)", cfg.AWSRegion, cfg.DynamoDBTablePrefix)
	return &DynamoDBClient{
		client: client,
		config: cfg,
		logger: log,
	}, nil
}

// GetItem retrieves a single item by primary key, or the first match on a
// secondary index when config.IndexName is set. result is left untouched when
// nothing matches.
func (db *DynamoDBClient) GetItem(ctx context.Context, config models.QueryConfig, result interface{}) error {
	keyValue, err := keyAttribute(config)
	if err != nil {
		return err
	}

	if config.IndexName == "" {
		output, err := db.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(config.TableName),
			Key:            map[string]types.AttributeValue{config.KeyName: keyValue},
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			db.logger.Errorf("Failed to get item from %s: %v", config.TableName, err)
			return err
		}
		if output.Item == nil {
			return nil
		}
		return attributevalue.UnmarshalMap(output.Item, result)
	}

	output, err := db.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(config.TableName),
		IndexName:                 aws.String(config.IndexName),
		KeyConditionExpression:    aws.String("#kn0 = :kv0"),
		ExpressionAttributeNames:  map[string]string{"#kn0": config.KeyName},
		ExpressionAttributeValues: map[string]types.AttributeValue{":kv0": keyValue},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		db.logger.Errorf("Failed to query %s.%s: %v", config.TableName, config.IndexName, err)
		return err
	}
	if len(output.Items) == 0 {
		return nil
	}
	return attributevalue.UnmarshalMap(output.Items[0], result)
}

func keyAttribute(config models.QueryConfig) (types.AttributeValue, error) {
	switch config.KeyType {
	case models.StringType:
		return &types.AttributeValueMemberS{Value: config.KeyValue}, nil
	case models.NumberType:
		return &types.AttributeValueMemberN{Value: config.KeyValue}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %d for %s", config.KeyType, config.KeyName)
	}
}

// PutItem stores an item in DynamoDB
func (db *DynamoDBClient) PutItem(ctx context.Context, tableName string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	})
	return err
}

// PutItemIf stores an item only when cond holds
func (db *DynamoDBClient) PutItemIf(ctx context.Context, tableName string, item interface{}, cond Condition) error {
	put, err := BuildPut(tableName, item, cond)
	if err != nil {
		return err
	}

	_, err = db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 put.Put.TableName,
		Item:                      put.Put.Item,
		ConditionExpression:       put.Put.ConditionExpression,
		ExpressionAttributeNames:  put.Put.ExpressionAttributeNames,
		ExpressionAttributeValues: put.Put.ExpressionAttributeValues,
	})
	return err
}

// UpdateItem sets the given attributes on an existing item
func (db *DynamoDBClient) UpdateItem(ctx context.Context, tableName, key, keyValue string, updates map[string]interface{}) error {
	expr, names, values, err := buildSetExpression(updates)
	if err != nil {
		return err
	}

	_, err = db.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: keyValue},
		},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  mergeNames(names, map[string]string{"#pk": key}),
		ExpressionAttributeValues: values,
	})
	return err
}

// IncrementCounter atomically adds delta to attribute and returns the new value
func (db *DynamoDBClient) IncrementCounter(ctx context.Context, tableName, key, keyValue, attribute string, delta int64) (int64, error) {
	output, err := db.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: keyValue},
		},
		UpdateExpression:         aws.String("ADD #attr :delta"),
		ExpressionAttributeNames: map[string]string{"#attr": attribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", delta)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}

	var out map[string]int64
	if err := attributevalue.UnmarshalMap(output.Attributes, &out); err != nil {
		return 0, fmt.Errorf("failed to decode counter %s: %w", keyValue, err)
	}
	return out[attribute], nil
}

// TransactWrite applies all items atomically
func (db *DynamoDBClient) TransactWrite(ctx context.Context, items []types.TransactWriteItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		db.logger.Warnf("Transaction of %d items failed: %v", len(items), err)
	}
	return err
}

// DeleteItem deletes an item from DynamoDB
func (db *DynamoDBClient) DeleteItem(ctx context.Context, tableName, key, value string) error {
	_, err := db.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: value},
		},
	})
	return err
}

// QueryByIndex queries all items matching keyValue on a global secondary index
func (db *DynamoDBClient) QueryByIndex(ctx context.Context, tableName, indexName, keyName, keyValue string, results interface{}) error {
	paginator := dynamodb.NewQueryPaginator(db.client, &dynamodb.QueryInput{
		TableName:                aws.String(tableName),
		IndexName:                aws.String(indexName),
		KeyConditionExpression:   aws.String("#kn0 = :kv0"),
		ExpressionAttributeNames: map[string]string{"#kn0": keyName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kv0": &types.AttributeValueMemberS{Value: keyValue},
		},
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		items = append(items, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(items, results)
}

// ScanTable scans the whole table
func (db *DynamoDBClient) ScanTable(ctx context.Context, tableName string, results interface{}) error {
	paginator := dynamodb.NewScanPaginator(db.client, &dynamodb.ScanInput{
		TableName:      aws.String(tableName),
		ConsistentRead: aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		items = append(items, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(items, results)
}

// CreateTable creates a table
func (db *DynamoDBClient) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error {
	_, err := db.client.CreateTable(ctx, input)
	return err
}

// DescribeTable describes a table
func (db *DynamoDBClient) DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error) {
	return db.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
}

// buildSetExpression renders updates as a deterministic SET expression
func buildSetExpression(updates map[string]interface{}) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(updates) == 0 {
		return "", nil, nil, fmt.Errorf("no attributes to update")
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	parts := make([]string, 0, len(fields))
	for i, field := range fields {
		attrName := fmt.Sprintf("#u%d", i)
		attrValue := fmt.Sprintf(":u%d", i)

		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal %s: %w", field, err)
		}
		names[attrName] = field
		values[attrValue] = av
		parts = append(parts, attrName+" = "+attrValue)
	}

	return "SET " + strings.Join(parts, ", "), names, values, nil
}

func mergeNames(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
