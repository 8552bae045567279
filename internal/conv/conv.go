package conv

import "strconv"

// AsInt coerces common JSON-decoded numeric representations into an int.
func AsInt(value interface{}) int {
	switch actual := value.(type) {
	case int:
		return actual
	case int64:
		return int(actual)
	case uint64:
		return int(actual)
	case float64:
		return int(actual)
	case float32:
		return int(actual)
	case string:
		ret, _ := strconv.Atoi(actual)
		return ret
	}
	return 0
}
