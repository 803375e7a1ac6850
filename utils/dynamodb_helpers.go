package utils

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ExtractString safely extracts a string from a DynamoDB attribute map
func ExtractString(item map[string]types.AttributeValue, field string) string {
	if attr, ok := item[field]; ok {
		if v, ok := attr.(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

// S builds a string attribute value
func S(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// StringList builds a list attribute holding the given strings
func StringList(values ...string) types.AttributeValue {
	list := make([]types.AttributeValue, 0, len(values))
	for _, v := range values {
		list = append(list, S(v))
	}
	return &types.AttributeValueMemberL{Value: list}
}

// IsConditionalCheckFailed reports whether a write was rejected by its
// ConditionExpression
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
