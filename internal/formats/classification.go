package formats

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/andresmejia3/trackpoint/internal/types"
)

const (
	classificationIndex       protowire.Number = 1
	classificationScore       protowire.Number = 2
	classificationLabel       protowire.Number = 3
	classificationDisplayName protowire.Number = 4

	classificationListClassification protowire.Number = 1
)

// UnmarshalClassification decodes a Classification message into a Category,
// keeping the classifier's index.
func UnmarshalClassification(b []byte) (types.Category, error) {
	var c types.Category
	err := walk("Classification", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case classificationIndex:
			v, n, err := consumeVarint(typ, b)
			c.Index = int(int32(v))
			return n, err
		case classificationScore:
			v, n, err := consumeFloat(typ, b)
			c.Score = v
			return n, err
		case classificationLabel:
			v, n, err := consumeString(typ, b)
			c.Label = v
			return n, err
		case classificationDisplayName:
			v, n, err := consumeString(typ, b)
			c.DisplayName = v
			return n, err
		}
		return skipField(num, typ, b)
	})
	return c, err
}

// UnmarshalClassificationList decodes a ClassificationList. The result is never nil.
func UnmarshalClassificationList(b []byte) ([]types.Category, error) {
	categories := []types.Category{}
	err := walk("ClassificationList", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != classificationListClassification {
			return skipField(num, typ, b)
		}
		raw, n, err := consumeBytes(typ, b)
		if err != nil {
			return 0, err
		}
		c, err := UnmarshalClassification(raw)
		if err != nil {
			return 0, err
		}
		categories = append(categories, c)
		return n, nil
	})
	if err != nil {
		return []types.Category{}, err
	}
	return categories, nil
}

func appendClassification(b []byte, c types.Category) []byte {
	b = appendInt32(b, classificationIndex, int32(c.Index))
	b = appendFloat(b, classificationScore, c.Score)
	if c.Label != "" {
		b = appendString(b, classificationLabel, c.Label)
	}
	if c.DisplayName != "" {
		b = appendString(b, classificationDisplayName, c.DisplayName)
	}
	return b
}

// MarshalClassificationList encodes categories as a ClassificationList message.
func MarshalClassificationList(categories []types.Category) []byte {
	var b []byte
	for _, c := range categories {
		b = appendMessage(b, classificationListClassification, appendClassification(nil, c))
	}
	return b
}
