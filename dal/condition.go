package dal

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition is a DynamoDB condition expression with its placeholders.
// Values are plain Go values and are marshalled when the request is built.
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]interface{}
}

// IsZero reports whether no condition was set
func (c Condition) IsZero() bool {
	return c.Expression == ""
}

func (c Condition) attributeValues() (map[string]types.AttributeValue, error) {
	if len(c.Values) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(c.Values))
	for k, v := range c.Values {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal condition value %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func (c Condition) names() map[string]string {
	if len(c.Names) == 0 {
		return nil
	}
	return c.Names
}

// BuildPut renders a conditional Put for use in TransactWrite
func BuildPut(tableName string, item interface{}, cond Condition) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal item: %w", err)
	}

	put := &types.Put{
		TableName: aws.String(tableName),
		Item:      av,
	}
	if !cond.IsZero() {
		values, err := cond.attributeValues()
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		put.ConditionExpression = aws.String(cond.Expression)
		put.ExpressionAttributeNames = cond.names()
		put.ExpressionAttributeValues = values
	}
	return types.TransactWriteItem{Put: put}, nil
}

// BuildCounterUpdate renders an ADD update of one or more numeric attributes
// on the item keyed by key=keyValue. The item must exist; cond is ANDed in.
func BuildCounterUpdate(tableName, key, keyValue string, deltas map[string]int64, set map[string]interface{}, cond Condition) (types.TransactWriteItem, error) {
	if len(deltas) == 0 && len(set) == 0 {
		return types.TransactWriteItem{}, fmt.Errorf("no counter changes for %s", keyValue)
	}

	names := map[string]string{"#pk": key}
	values := map[string]types.AttributeValue{}

	expr := ""
	if len(set) > 0 {
		setExpr, setNames, setValues, err := buildSetExpression(set)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		expr = setExpr
		for k, v := range setNames {
			names[k] = v
		}
		for k, v := range setValues {
			values[k] = v
		}
	}

	if len(deltas) > 0 {
		add := "ADD "
		i := 0
		for _, attr := range sortedKeys(deltas) {
			if i > 0 {
				add += ", "
			}
			n := fmt.Sprintf("#c%d", i)
			v := fmt.Sprintf(":c%d", i)
			names[n] = attr
			values[v] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", deltas[attr])}
			add += n + " " + v
			i++
		}
		if expr != "" {
			expr += " "
		}
		expr += add
	}

	condExpr := "attribute_exists(#pk)"
	if !cond.IsZero() {
		condExpr += " AND (" + cond.Expression + ")"
		for k, v := range cond.Names {
			names[k] = v
		}
		condValues, err := cond.attributeValues()
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		for k, v := range condValues {
			values[k] = v
		}
	}

	update := &types.Update{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: keyValue},
		},
		UpdateExpression:         aws.String(expr),
		ConditionExpression:      aws.String(condExpr),
		ExpressionAttributeNames: names,
	}
	if len(values) > 0 {
		update.ExpressionAttributeValues = values
	}
	return types.TransactWriteItem{Update: update}, nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
