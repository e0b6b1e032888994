package codec

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/modset/internal/tree"
)

// SerializeTrackingIDs encodes an ordered selection as a canonical JSON
// array. Empty ids are rejected since they can never resolve to a node.
func SerializeTrackingIDs(ids []tree.TrackingID) (string, error) {
	list := make([]string, len(ids))
	for i, id := range ids {
		if id == "" {
			return "", fmt.Errorf("serialize tracking ids: empty id at index %d", i)
		}
		list[i] = string(id)
	}
	data, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("serialize tracking ids: %w", err)
	}
	return string(data), nil
}

// DeserializeTrackingIDs decodes a token written by SerializeTrackingIDs.
// Order and bytes are preserved: deserializing a serialized list yields
// the same list.
func DeserializeTrackingIDs(token string) ([]tree.TrackingID, error) {
	var list []string
	if err := json.Unmarshal([]byte(token), &list); err != nil {
		return nil, fmt.Errorf("deserialize tracking ids: %w", err)
	}
	ids := make([]tree.TrackingID, len(list))
	for i, s := range list {
		if s == "" {
			return nil, fmt.Errorf("deserialize tracking ids: empty id at index %d", i)
		}
		ids[i] = tree.TrackingID(s)
	}
	return ids, nil
}
