// Package xpb converts X Protocol protobuf messages to and from plain Go
// maps, given only the serialized descriptors of the protocol. It keeps the
// wire handling generic so new protocol messages need no generated code.
package xpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Codec translates between serialized protobuf messages and generic maps
// using a descriptor set loaded at runtime.
type Codec struct {
	files *protoregistry.Files
}

// NewCodec builds a Codec from a serialized FileDescriptorSet.
func NewCodec(raw []byte) (*Codec, error) {
	var fdset descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fdset); err != nil {
		return nil, fmt.Errorf("cannot parse descriptor set: %w", err)
	}
	return NewCodecFromSet(&fdset)
}

// NewCodecFromSet builds a Codec from an already parsed FileDescriptorSet.
func NewCodecFromSet(fdset *descriptorpb.FileDescriptorSet) (*Codec, error) {
	files, err := protodesc.NewFiles(fdset)
	if err != nil {
		return nil, fmt.Errorf("cannot build descriptor registry: %w", err)
	}
	return &Codec{files: files}, nil
}

func (c *Codec) messageDescriptor(typeName string) (protoreflect.MessageDescriptor, error) {
	desc, err := c.files.FindDescriptorByName(protoreflect.FullName(typeName))
	if err != nil {
		return nil, fmt.Errorf("unknown message type %q: %w", typeName, err)
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%q is not a message type", typeName)
	}
	return md, nil
}

// Decode unmarshals data as the named message type and renders it as a map
// keyed by field name. Enum values come back as their name strings, nested
// messages as nested maps, repeated fields as []interface{}.
func (c *Codec) Decode(typeName string, data []byte) (map[string]interface{}, error) {
	md, err := c.messageDescriptor(typeName)
	if err != nil {
		return nil, err
	}
	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal %s: %w", typeName, err)
	}
	return messageToMap(msg), nil
}

// Encode builds the named message type from a map and marshals it.
func (c *Codec) Encode(typeName string, fields map[string]interface{}) ([]byte, error) {
	md, err := c.messageDescriptor(typeName)
	if err != nil {
		return nil, err
	}
	msg := dynamicpb.NewMessage(md)
	if err := populateMessage(msg, fields); err != nil {
		return nil, fmt.Errorf("cannot build %s: %w", typeName, err)
	}
	return proto.Marshal(msg)
}

func messageToMap(msg protoreflect.Message) map[string]interface{} {
	out := make(map[string]interface{})
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		out[string(fd.Name())] = valueToGo(fd, v)
		return true
	})
	return out
}

func valueToGo(fd protoreflect.FieldDescriptor, v protoreflect.Value) interface{} {
	if fd.IsList() {
		list := v.List()
		out := make([]interface{}, list.Len())
		for i := 0; i < list.Len(); i++ {
			out[i] = scalarToGo(fd, list.Get(i))
		}
		return out
	}
	return scalarToGo(fd, v)
}

func scalarToGo(fd protoreflect.FieldDescriptor, v protoreflect.Value) interface{} {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return messageToMap(v.Message())
	case protoreflect.EnumKind:
		ev := fd.Enum().Values().ByNumber(v.Enum())
		if ev == nil {
			return int32(v.Enum())
		}
		return string(ev.Name())
	case protoreflect.BytesKind:
		return v.Bytes()
	default:
		return v.Interface()
	}
}

func populateMessage(msg protoreflect.Message, fields map[string]interface{}) error {
	md := msg.Descriptor()
	for name, value := range fields {
		fd := md.Fields().ByName(protoreflect.Name(name))
		if fd == nil {
			return fmt.Errorf("message %s has no field %q", md.FullName(), name)
		}
		if fd.IsList() {
			items, ok := value.([]interface{})
			if !ok {
				return fmt.Errorf("field %q is repeated, need []interface{}, got %T", name, value)
			}
			list := msg.Mutable(fd).List()
			for _, item := range items {
				v, err := goToScalar(fd, item, list.NewElement)
				if err != nil {
					return fmt.Errorf("field %q: %w", name, err)
				}
				list.Append(v)
			}
			continue
		}
		newMessage := func() protoreflect.Value { return msg.NewField(fd) }
		v, err := goToScalar(fd, value, newMessage)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		msg.Set(fd, v)
	}
	return nil
}

// goToScalar converts one Go value to a protoreflect value of the field's
// kind. newElem supplies a fresh value for message kinds, which differs
// between singular fields and list elements.
func goToScalar(fd protoreflect.FieldDescriptor, value interface{}, newElem func() protoreflect.Value) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		nested, ok := value.(map[string]interface{})
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("need map[string]interface{}, got %T", value)
		}
		v := newElem()
		if err := populateMessage(v.Message(), nested); err != nil {
			return protoreflect.Value{}, err
		}
		return v, nil

	case protoreflect.EnumKind:
		switch ev := value.(type) {
		case string:
			desc := fd.Enum().Values().ByName(protoreflect.Name(ev))
			if desc == nil {
				return protoreflect.Value{}, fmt.Errorf("enum %s has no value %q", fd.Enum().FullName(), ev)
			}
			return protoreflect.ValueOfEnum(desc.Number()), nil
		case int32:
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(ev)), nil
		case int:
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(ev)), nil
		}
		return protoreflect.Value{}, fmt.Errorf("need enum name or number, got %T", value)

	case protoreflect.BoolKind:
		b, ok := value.(bool)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("need bool, got %T", value)
		}
		return protoreflect.ValueOfBool(b), nil

	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := toInt64(value)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt32(int32(n)), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := toInt64(value)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt64(n), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := toInt64(value)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfUint32(uint32(n)), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		switch n := value.(type) {
		case uint64:
			return protoreflect.ValueOfUint64(n), nil
		case uint:
			return protoreflect.ValueOfUint64(uint64(n)), nil
		default:
			v, err := toInt64(value)
			if err != nil {
				return protoreflect.Value{}, err
			}
			return protoreflect.ValueOfUint64(uint64(v)), nil
		}

	case protoreflect.FloatKind:
		f, err := toFloat64(value)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat32(float32(f)), nil
	case protoreflect.DoubleKind:
		f, err := toFloat64(value)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat64(f), nil

	case protoreflect.StringKind:
		s, ok := value.(string)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("need string, got %T", value)
		}
		return protoreflect.ValueOfString(s), nil
	case protoreflect.BytesKind:
		switch b := value.(type) {
		case []byte:
			return protoreflect.ValueOfBytes(b), nil
		case string:
			return protoreflect.ValueOfBytes([]byte(b)), nil
		}
		return protoreflect.Value{}, fmt.Errorf("need []byte, got %T", value)
	}
	return protoreflect.Value{}, fmt.Errorf("unsupported field kind %v", fd.Kind())
}

func toInt64(value interface{}) (int64, error) {
	switch n := value.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("need integer, got %T", value)
}

func toFloat64(value interface{}) (float64, error) {
	switch f := value.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	}
	return 0, fmt.Errorf("need float, got %T", value)
}
