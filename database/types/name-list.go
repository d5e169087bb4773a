package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NameList is stored as a JSON array in a text column.
type NameList []string

var _ driver.Valuer = NameList{}

var _ sql.Scanner = &NameList{}

func (n NameList) Value() (driver.Value, error) {
	if n == nil {
		n = NameList{}
	}
	b, err := json.Marshal([]string(n))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (n *NameList) Scan(src any) error {
	switch srcRaw := src.(type) {
	case nil:
		*n = nil
		return nil
	case string:
		return json.Unmarshal([]byte(srcRaw), n)
	case []byte:
		return json.Unmarshal(srcRaw, n)
	}
	return fmt.Errorf("invalid type %T", src)
}
