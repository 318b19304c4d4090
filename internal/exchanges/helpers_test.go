package exchanges

import "encoding/json"

func decodeJSON[T any](raw []byte) (T, error) {
	var out T
	err := json.Unmarshal(raw, &out)
	return out, err
}
