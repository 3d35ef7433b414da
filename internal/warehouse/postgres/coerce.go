package postgres

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// maxVarcharBytes matches the default Redshift varchar length; longer
// strings are truncated the way TRUNCATECOLUMNS does.
const maxVarcharBytes = 256

// coerce converts a decoded JSON value into the Go value loaded into a
// column of type t. Blank and empty strings load as NULL, numeric
// timestamps are epoch milliseconds, and numeric columns accept numeric
// strings.
func coerce(v any, t warehouse.ColumnType) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		if t == warehouse.Varchar {
			return truncate(x), nil
		}
		return coerceNumber(json.Number(strings.TrimSpace(x)), t)
	case json.Number:
		return coerceNumber(x, t)
	case float64:
		return coerceNumber(json.Number(strconv.FormatFloat(x, 'f', -1, 64)), t)
	case bool:
		if t == warehouse.Varchar {
			return strconv.FormatBool(x), nil
		}
		return nil, fmt.Errorf("cannot load boolean into %s column", t)
	case map[string]any, []any:
		if t == warehouse.Varchar {
			b, err := json.Marshal(x)
			if err != nil {
				return nil, err
			}
			return truncate(string(b)), nil
		}
		return nil, fmt.Errorf("cannot load %T into %s column", x, t)
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", v)
	}
}

func coerceNumber(n json.Number, t warehouse.ColumnType) (any, error) {
	s := string(n)
	switch t {
	case warehouse.Varchar:
		return truncate(s), nil
	case warehouse.Int:
		i, err := parseInteger(s)
		if err != nil {
			return nil, err
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("%s is out of range for int", s)
		}
		return int32(i), nil
	case warehouse.BigInt:
		return parseInteger(s)
	case warehouse.Float4:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid float4 %q", s)
		}
		return float32(f), nil
	case warehouse.Timestamp:
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return nil, fmt.Errorf("invalid epoch milliseconds %q", s)
			}
			ms = int64(f)
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", t)
	}
}

// parseInteger accepts integers and integral floats such as 1540919166796.0.
func parseInteger(s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int64(f), nil
}

// truncate cuts s to maxVarcharBytes without splitting a UTF-8 sequence.
func truncate(s string) string {
	if len(s) <= maxVarcharBytes {
		return s
	}
	cut := maxVarcharBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
