package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// decodeList reads a JSON array that the backend sends either bare or
// wrapped in an object under one of keys. A null or empty body is an empty
// list.
func decodeList[T any](body []byte, keys ...string) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []T{}, nil
	}

	switch body[0] {
	case '[':
		var list []T
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, apperrors.Decode(err)
		}
		return nonNil(list), nil

	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, apperrors.Decode(err)
		}
		for _, key := range keys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			var list []T
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, apperrors.Decode(err)
			}
			return nonNil(list), nil
		}
		return nil, apperrors.Decode(fmt.Errorf("response has none of the keys %v", keys))
	}

	return nil, apperrors.Decode(fmt.Errorf("unexpected response shape starting with %q", body[0]))
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
