package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt64 decodes an integer that callers may send either as a JSON number
// or as a numeric string. Zero means absent.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Accept 1.0 style numbers produced by generic JSON encoders.
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || fl != float64(int64(fl)) {
			return fmt.Errorf("invalid integer %s", string(b))
		}
		n = int64(fl)
	}
	*f = FlexInt64(n)
	return nil
}

func (f FlexInt64) Int64() int64 { return int64(f) }

// FlexString decodes a value sent either as a JSON string or as a bare number,
// keeping the number's literal text. Used for monetary amounts.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(str))
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("invalid amount %s", s)
	}
	*f = FlexString(s)
	return nil
}
