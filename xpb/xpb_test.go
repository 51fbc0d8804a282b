package xpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// testDescriptorSet builds a small protocol in the shape of the X Protocol
// descriptors: a request message with scalars, an enum, a repeated field
// and a nested message.
func testDescriptorSet(t *testing.T) *descriptorpb.FileDescriptorSet {
	t.Helper()

	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("session.proto"),
		Package: proto.String("proto.session"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("AuthState"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("STARTING"), Number: proto.Int32(0)},
				{Name: proto.String("ONGOING"), Number: proto.Int32(1)},
				{Name: proto.String("DONE"), Number: proto.Int32(2)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Capability"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{
						Name:   proto.String("name"),
						Number: proto.Int32(1),
						Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
						Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					},
				},
			},
			{
				Name: proto.String("AuthenticateStart"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{
						Name:   proto.String("mech_name"),
						Number: proto.Int32(1),
						Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
						Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					},
					{
						Name:   proto.String("auth_data"),
						Number: proto.Int32(2),
						Type:   descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum(),
						Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					},
					{
						Name:   proto.String("attempts"),
						Number: proto.Int32(3),
						Type:   descriptorpb.FieldDescriptorProto_TYPE_INT64.Enum(),
						Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					},
					{
						Name:     proto.String("state"),
						Number:   proto.Int32(4),
						Type:     descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum(),
						TypeName: proto.String(".proto.session.AuthState"),
						Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					},
					{
						Name:   proto.String("tags"),
						Number: proto.Int32(5),
						Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
						Label:  descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
					},
					{
						Name:     proto.String("capability"),
						Number:   proto.Int32(6),
						Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
						TypeName: proto.String(".proto.session.Capability"),
						Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					},
				},
			},
		},
	}
	return &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{file}}
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodecFromSet(testDescriptorSet(t))
	require.NoError(t, err)
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	fields := map[string]interface{}{
		"mech_name": "MYSQL41",
		"auth_data": []byte{0x01, 0x02},
		"attempts":  int64(3),
		"state":     "ONGOING",
		"tags":      []interface{}{"a", "b"},
		"capability": map[string]interface{}{
			"name": "tls",
		},
	}

	data, err := codec.Encode("proto.session.AuthenticateStart", fields)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := codec.Decode("proto.session.AuthenticateStart", data)
	require.NoError(t, err)

	assert.Equal(t, "MYSQL41", decoded["mech_name"])
	assert.Equal(t, []byte{0x01, 0x02}, decoded["auth_data"])
	assert.Equal(t, int64(3), decoded["attempts"])
	assert.Equal(t, "ONGOING", decoded["state"])
	assert.Equal(t, []interface{}{"a", "b"}, decoded["tags"])
	assert.Equal(t, map[string]interface{}{"name": "tls"}, decoded["capability"])
}

func TestCodecEnumByNumber(t *testing.T) {
	codec := newTestCodec(t)

	data, err := codec.Encode("proto.session.AuthenticateStart", map[string]interface{}{
		"state": int32(2),
	})
	require.NoError(t, err)

	decoded, err := codec.Decode("proto.session.AuthenticateStart", data)
	require.NoError(t, err)
	assert.Equal(t, "DONE", decoded["state"])
}

func TestCodecUnknownType(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Decode("proto.session.NoSuchMessage", nil)
	require.Error(t, err)

	_, err = codec.Encode("proto.session.NoSuchMessage", nil)
	require.Error(t, err)
}

func TestCodecUnknownField(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Encode("proto.session.AuthenticateStart", map[string]interface{}{
		"bogus": 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestCodecWrongFieldType(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Encode("proto.session.AuthenticateStart", map[string]interface{}{
		"mech_name": 42,
	})
	require.Error(t, err)

	_, err = codec.Encode("proto.session.AuthenticateStart", map[string]interface{}{
		"state": "NOT_A_STATE",
	})
	require.Error(t, err)
}

func TestNewCodecFromBytes(t *testing.T) {
	raw, err := proto.Marshal(testDescriptorSet(t))
	require.NoError(t, err)

	codec, err := NewCodec(raw)
	require.NoError(t, err)

	_, err = codec.Encode("proto.session.Capability", map[string]interface{}{"name": "x"})
	require.NoError(t, err)
}

func TestNewCodecBadInput(t *testing.T) {
	_, err := NewCodec([]byte{0xFF, 0xFF, 0xFF})
	require.Error(t, err)
}
