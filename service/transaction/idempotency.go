package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// KeyFunc derives an idempotency key from an operation name and request
type KeyFunc func(name string, request interface{}) string

// DefaultKey returns name:sha256(json(request)); requests that cannot be
// marshalled are hashed from their printed form.
func DefaultKey(name string, request interface{}) string {
	data, err := json.Marshal(request)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", request))
	}
	sum := sha256.Sum256(data)
	return name + ":" + hex.EncodeToString(sum[:])
}
