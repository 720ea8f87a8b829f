package log

import (
	"fmt"

	"go.uber.org/zap"
)

// toFields converts a loose key/value list into zap fields.
// A bare error becomes zap.Error, a zap.Field is passed through, a trailing
// unpaired value is kept under "arg#<index>" and a non-string key is logged
// together with its value under "invalid_key_<n>".
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)

	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		keyStr, ok := key.(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{
				"key":   key,
				"value": val,
			}))
			continue
		}

		if err, ok := val.(error); ok {
			fields = append(fields, zap.NamedError(keyStr, err))
			continue
		}
		fields = append(fields, zap.Any(keyStr, val))
	}

	return fields
}
