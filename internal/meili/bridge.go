package meili

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// bridge is std-compatible so Marshaler/Unmarshaler hooks on both sides run.
var bridge = sonic.ConfigStd

// convert copies src into dst through their JSON representations.
// Domain types and meilisearch-go types share Meilisearch's wire format,
// so this keeps the gateway independent of the client's struct layout.
func convert(src, dst any) error {
	raw, err := bridge.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %T: %w", src, err)
	}
	if err := bridge.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode into %T: %w", dst, err)
	}
	return nil
}

// raw re-encodes a client response for verbatim passthrough.
func raw(src any) ([]byte, error) {
	b, err := bridge.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", src, err)
	}
	return b, nil
}
