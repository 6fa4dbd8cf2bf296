package analysis

import (
	"encoding/json"

	"onionscope/pkg/errors"
	"onionscope/pkg/onion"
)

// MarshalPayload serializes a layer payload to JSON.
func MarshalPayload(p onion.Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to marshal %s payload", p.PayloadLayer())
	}
	return data, nil
}

// UnmarshalPayload decodes JSON into the concrete payload type for layer.
// The wire format carries no type tag; the layer determines the shape.
func UnmarshalPayload(layer onion.Layer, data []byte) (onion.Payload, error) {
	var (
		p   onion.Payload
		err error
	)
	switch layer {
	case onion.LayerProjectIntent:
		var v onion.ProjectIntentData
		err = json.Unmarshal(data, &v)
		p = v
	case onion.LayerBusinessDomain:
		var v onion.BusinessDomainData
		err = json.Unmarshal(data, &v)
		p = v
	case onion.LayerKeyProcess:
		var v onion.KeyProcessData
		err = json.Unmarshal(data, &v)
		p = v
	case onion.LayerImplementation:
		var v onion.ImplementationData
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, errors.New(errors.ErrCodeInvalidLayer, "cannot decode payload for layer %d", int(layer))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed %s payload", layer)
	}
	return p, nil
}
