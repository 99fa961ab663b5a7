package unit

import "time"

// Typed accessors over the opaque Config map. Descriptor decoding yields
// strings, bools and float64 numbers; each accessor returns the fallback
// when the key is absent or has an unexpected type.

func (s *Spec) ConfigString(key, fallback string) string {
	if v, ok := s.Config[key].(string); ok {
		return v
	}
	return fallback
}

func (s *Spec) ConfigBool(key string, fallback bool) bool {
	if v, ok := s.Config[key].(bool); ok {
		return v
	}
	return fallback
}

func (s *Spec) ConfigInt(key string, fallback int) int {
	switch v := s.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// ConfigDuration parses a duration string such as "5s".
func (s *Spec) ConfigDuration(key string, fallback time.Duration) time.Duration {
	v, ok := s.Config[key].(string)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
