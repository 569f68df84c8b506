package repository

import (
	"encoding/json"
	"fmt"
)

// Repositories hold a db.Querier so the same methods run either against
// the pool or inside a transaction (WithTx on each repository).

func marshalDoc(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

func unmarshalDoc(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
