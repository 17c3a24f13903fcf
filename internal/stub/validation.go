package stub

import (
	"fmt"
	"net/http"
	"strconv"
)

// queryNumber extracts and validates an integer value out of the query
// parameters of the given request
func queryNumber(request *http.Request, key string, def, min, max int64) (int64, *fieldDetail) {
	value := request.URL.Query().Get(key)
	if value == "" {
		return def, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &fieldDetail{
			Loc:  []interface{}{"query", key},
			Msg:  fmt.Sprintf("value %q is not a valid integer", value),
			Type: "type_error.integer",
		}
	}

	if parsed < min || parsed > max {
		return 0, &fieldDetail{
			Loc:  []interface{}{"query", key},
			Msg:  fmt.Sprintf("value %d is out of the allowed range [%d, %d]", parsed, min, max),
			Type: "value_error.number.range",
		}
	}

	return parsed, nil
}
