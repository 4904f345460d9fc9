package utils

import "encoding/json"

// MarshalToJSON marshals a generic value to its JSON string form.
func MarshalToJSON[T any](input T) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// UnmarshalFromJSON unmarshals JSON into a generic destination.
func UnmarshalFromJSON[T any](data []byte, output *T) error {
	return json.Unmarshal(data, output)
}
