package satchel

import (
	"encoding/json"
	"fmt"
)

// Policy decides when a flash value is dropped.
type Policy string

const (
	// ExpireOnRequest values survive exactly one additional load.
	ExpireOnRequest Policy = "on_request"
	// ExpireOnGet values survive until read, then vanish on the next persist.
	ExpireOnGet Policy = "on_get"
)

func (p Policy) Valid() bool {
	return p == ExpireOnRequest || p == ExpireOnGet
}

type State string

const (
	StateNew     State = "new"
	StateLoaded  State = "loaded"
	StateExpired State = "expired"
)

func (s State) Valid() bool {
	return s == StateNew || s == StateLoaded || s == StateExpired
}

// Expiration is the per-key flash record. It is persisted as the JSON pair
// [policy, state].
type Expiration struct {
	Policy Policy
	State  State
}

func (e Expiration) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(e.Policy), string(e.State)})
}

func (e *Expiration) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	exp, ok := expirationFromPair(pair)
	if !ok {
		return fmt.Errorf("%w: malformed expiration record %s", ErrInvalidArgument, b)
	}
	*e = exp
	return nil
}

func expirationFromPair(pair []string) (Expiration, bool) {
	if len(pair) != 2 {
		return Expiration{}, false
	}
	exp := Expiration{Policy: Policy(pair[0]), State: State(pair[1])}
	if !exp.Policy.Valid() || !exp.State.Valid() {
		return Expiration{}, false
	}
	return exp, true
}

// decodeExpirations accepts the index either as built in memory or as it
// comes back from a JSON round trip. Malformed records are skipped.
func decodeExpirations(raw any) map[string]Expiration {
	out := make(map[string]Expiration)

	switch index := raw.(type) {
	case map[string]Expiration:
		for k, v := range index {
			out[k] = v
		}
	case map[string]any:
		for k, v := range index {
			if exp, ok := decodeExpiration(v); ok {
				out[k] = exp
			}
		}
	}
	return out
}

func decodeExpiration(v any) (Expiration, bool) {
	switch rec := v.(type) {
	case Expiration:
		return rec, rec.Policy.Valid() && rec.State.Valid()
	case *Expiration:
		if rec == nil {
			return Expiration{}, false
		}
		return decodeExpiration(*rec)
	case [2]string:
		return expirationFromPair(rec[:])
	case []string:
		return expirationFromPair(rec)
	case []any:
		pair := make([]string, 0, len(rec))
		for _, part := range rec {
			s, ok := part.(string)
			if !ok {
				return Expiration{}, false
			}
			pair = append(pair, s)
		}
		return expirationFromPair(pair)
	}
	return Expiration{}, false
}
