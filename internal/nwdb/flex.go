package nwdb

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`\d+`)

var romanNumerals = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5,
	"VI": 6, "VII": 7, "VIII": 8, "IX": 9, "X": 10,
}

// FlexInt decodes a JSON number, numeric string, roman numeral or range
// ("500-600" decodes to its upper bound). Anything else decodes to 0.
type FlexInt int

// UnmarshalJSON never fails; unparsable input becomes 0
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '"' {
		var n float64
		if err := json.Unmarshal(data, &n); err == nil {
			*f = FlexInt(int(n))
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	*f = FlexInt(ParseFlexInt(s))
	return nil
}

// ParseFlexInt applies FlexInt's string coercion rules
func ParseFlexInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	if n, ok := romanNumerals[strings.ToUpper(s)]; ok {
		return n
	}

	best := 0
	for _, run := range digitRun.FindAllString(s, -1) {
		if n, err := strconv.Atoi(run); err == nil && n > best {
			best = n
		}
	}
	return best
}

// FlexString decodes a JSON string or number into its string form
type FlexString string

// UnmarshalJSON accepts strings, numbers and booleans; null becomes ""
func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(string(data))
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
