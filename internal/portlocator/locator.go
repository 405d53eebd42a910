// Package portlocator implements the comm-port locator: a recursive search
// for a `port` field inside a comm_msg payload, grounded on the depth-first
// params/content/root search the upstream sidecar's connection module
// performs before this one existed in Go.
package portlocator

import "strconv"

// Find returns the first u16 port discovered in data, searching data.params
// first, then data.content, then data itself. Within each, it walks the
// JSON value depth-first, checking the "port" key of every object before
// recursing into its values in Go map iteration order, which is not defined,
// or into array elements in index order. When several nested values of one
// object each lead to a valid port, which of those ports is returned is
// therefore not defined.
func Find(data map[string]interface{}) (uint16, bool) {
	if params, ok := asObject(data["params"]); ok {
		if port, ok := find(params); ok {
			return port, true
		}
	}
	if content, ok := asObject(data["content"]); ok {
		if port, ok := find(content); ok {
			return port, true
		}
	}
	return find(data)
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func find(value interface{}) (uint16, bool) {
	switch v := value.(type) {
	case map[string]interface{}:
		if port, ok := parsePortValue(v["port"]); ok {
			return port, true
		}
		for _, nested := range v {
			if port, ok := find(nested); ok {
				return port, true
			}
		}
		return 0, false
	case []interface{}:
		for _, nested := range v {
			if port, ok := find(nested); ok {
				return port, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// parsePortValue accepts a JSON number (decoded by encoding/json as
// float64) or a decimal string, and rejects anything else (including
// booleans, which would otherwise satisfy a loose numeric conversion).
func parsePortValue(value interface{}) (uint16, bool) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v > 65535 || v != float64(uint16(v)) {
			return 0, false
		}
		return uint16(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return 0, false
		}
		return uint16(n), true
	default:
		return 0, false
	}
}
