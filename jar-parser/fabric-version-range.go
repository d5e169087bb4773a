package jar_parser

import (
	"encoding/json"
	"errors"
	"github.com/Masterminds/semver/v3"
	"strings"
)

var ErrInvalidFabricVersionRange = errors.New("invalid fabric version range")

// FabricVersionRange is a fabric or quilt dependency range. A list of ranges
// matches when any of them matches.
type FabricVersionRange struct {
	C *semver.Constraints
}

var _ json.Unmarshaler = &FabricVersionRange{}

func (v *FabricVersionRange) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return ErrInvalidFabricVersionRange
	}
	switch b[0] {
	case '"':
		var s string
		err := json.Unmarshal(b, &s)
		if err != nil {
			return err
		}
		if len(s) == 0 {
			return ErrInvalidFabricVersionRange
		}
		v.C, err = semver.NewConstraint(s)
		return err
	case '[':
		var s []string
		err := json.Unmarshal(b, &s)
		if err != nil {
			return err
		}
		if len(s) == 0 {
			s = []string{"*"}
		}
		v.C, err = semver.NewConstraint(strings.Join(s, " || "))
		return err
	}
	return ErrInvalidFabricVersionRange
}
