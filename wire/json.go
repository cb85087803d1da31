package wire

import (
	"strconv"
)

func marshalUint(v uint64) ([]byte, error) {
	return []byte(strconv.FormatUint(v, 10)), nil
}

func unmarshalUint(b []byte) (uint64, error) {
	return strconv.ParseUint(string(b), 10, 64)
}
