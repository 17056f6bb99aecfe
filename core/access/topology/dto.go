package topology

import "golang.org/x/xerrors"

// MaxDecodeDepth is the deepest structure that can be decoded. The engine
// enforces its own, lower, configured limit when a structure is submitted.
const MaxDecodeDepth = 128

const (
	typeSimple    = "simple"
	typeThreshold = "threshold"
	typeList      = "list"
)

// DTO is the serializable form of a key structure shared by the formats.
type DTO struct {
	Type      string `json:"type"`
	Key       []byte `json:"key,omitempty"`
	Threshold uint32 `json:"threshold,omitempty"`
	Keys      []DTO  `json:"keys,omitempty"`
}

// ToDTO returns the serializable form of the key structure, or nil if the key
// is nil.
func ToDTO(key Key) *DTO {
	if key == nil {
		return nil
	}

	dto := toDTO(key)

	return &dto
}

func toDTO(key Key) DTO {
	switch k := key.(type) {
	case SimpleKey:
		return DTO{Type: typeSimple, Key: k.PublicKey}
	case ThresholdKey:
		return DTO{Type: typeThreshold, Threshold: k.Threshold, Keys: toDTOs(k.Keys)}
	case KeyList:
		return DTO{Type: typeList, Keys: toDTOs(k.Keys)}
	default:
		return DTO{}
	}
}

func toDTOs(keys []Key) []DTO {
	res := make([]DTO, len(keys))
	for i, key := range keys {
		res[i] = toDTO(key)
	}

	return res
}

// FromDTO returns the key structure of the serializable form, or nil if the
// form is nil.
func FromDTO(dto *DTO) (Key, error) {
	if dto == nil {
		return nil, nil
	}

	return fromDTO(*dto, 1)
}

// FromDTOs returns the list of key structures.
func FromDTOs(dtos []DTO) ([]Key, error) {
	return fromDTOs(dtos, 1)
}

func fromDTOs(dtos []DTO, depth int) ([]Key, error) {
	keys := make([]Key, len(dtos))

	for i, dto := range dtos {
		key, err := fromDTO(dto, depth)
		if err != nil {
			return nil, err
		}

		keys[i] = key
	}

	return keys, nil
}

func fromDTO(dto DTO, depth int) (Key, error) {
	if depth > MaxDecodeDepth {
		return nil, xerrors.Errorf("structure deeper than %d", MaxDecodeDepth)
	}

	switch dto.Type {
	case typeSimple:
		return NewSimpleKey(dto.Key), nil
	case typeThreshold:
		keys, err := fromDTOs(dto.Keys, depth+1)
		if err != nil {
			return nil, err
		}

		return NewThresholdKey(dto.Threshold, keys...), nil
	case typeList:
		keys, err := fromDTOs(dto.Keys, depth+1)
		if err != nil {
			return nil, err
		}

		return NewKeyList(keys...), nil
	default:
		return nil, xerrors.Errorf("unknown key type '%s'", dto.Type)
	}
}
