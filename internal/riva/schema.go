package riva

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	streamingRecognizeMethod = "/nvidia.riva.asr.RivaSpeechRecognition/StreamingRecognize"
	asrPackage               = "nvidia.riva.asr"

	encodingLinearPCM protoreflect.EnumNumber = 1
)

// asrSchema holds the subset of the Riva ASR wire schema voce speaks.
// Field numbers follow riva_asr.proto.
type asrSchema struct {
	request         protoreflect.MessageDescriptor
	streamingConfig protoreflect.MessageDescriptor
	recognition     protoreflect.MessageDescriptor
	speechContext   protoreflect.MessageDescriptor
	response        protoreflect.MessageDescriptor
	result          protoreflect.MessageDescriptor
	alternative     protoreflect.MessageDescriptor
}

var schema = mustBuildSchema()

func mustBuildSchema() asrSchema {
	s, err := buildSchema()
	if err != nil {
		panic(fmt.Sprintf("riva: build asr schema: %v", err))
	}
	return s
}

func buildSchema() (asrSchema, error) {
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	repeated := descriptorpb.FieldDescriptorProto_LABEL_REPEATED

	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("voce/riva_asr_subset.proto"),
		Package: proto.String(asrPackage),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("AudioEncoding"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("ENCODING_UNSPECIFIED"), Number: proto.Int32(0)},
				{Name: proto.String("LINEAR_PCM"), Number: proto.Int32(int32(encodingLinearPCM))},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("RecognitionConfig"),
				Field: []*descriptorpb.FieldDescriptorProto{
					enumField("encoding", 1, "AudioEncoding"),
					scalarField("sample_rate_hertz", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32, optional),
					scalarField("language_code", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional),
					scalarField("max_alternatives", 4, descriptorpb.FieldDescriptorProto_TYPE_INT32, optional),
					messageField("speech_contexts", 6, "SpeechContext", repeated),
					scalarField("audio_channel_count", 7, descriptorpb.FieldDescriptorProto_TYPE_INT32, optional),
					scalarField("enable_automatic_punctuation", 11, descriptorpb.FieldDescriptorProto_TYPE_BOOL, optional),
					scalarField("model", 13, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional),
				},
			},
			{
				Name: proto.String("SpeechContext"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("phrases", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, repeated),
					scalarField("boost", 4, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, optional),
				},
			},
			{
				Name: proto.String("StreamingRecognitionConfig"),
				Field: []*descriptorpb.FieldDescriptorProto{
					messageField("config", 1, "RecognitionConfig", optional),
					scalarField("interim_results", 2, descriptorpb.FieldDescriptorProto_TYPE_BOOL, optional),
				},
			},
			{
				Name:      proto.String("StreamingRecognizeRequest"),
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("streaming_request")}},
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(messageField("streaming_config", 1, "StreamingRecognitionConfig", optional)),
					inOneof(scalarField("audio_content", 2, descriptorpb.FieldDescriptorProto_TYPE_BYTES, optional)),
				},
			},
			{
				Name: proto.String("SpeechRecognitionAlternative"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("transcript", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional),
					scalarField("confidence", 2, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, optional),
				},
			},
			{
				Name: proto.String("StreamingRecognitionResult"),
				Field: []*descriptorpb.FieldDescriptorProto{
					messageField("alternatives", 1, "SpeechRecognitionAlternative", repeated),
					scalarField("is_final", 2, descriptorpb.FieldDescriptorProto_TYPE_BOOL, optional),
					scalarField("stability", 3, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, optional),
					scalarField("audio_processed", 6, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, optional),
				},
			},
			{
				Name: proto.String("StreamingRecognizeResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					messageField("results", 1, "StreamingRecognitionResult", repeated),
				},
			},
		},
	}

	fd, err := protodesc.NewFile(file, nil)
	if err != nil {
		return asrSchema{}, err
	}
	messages := fd.Messages()
	return asrSchema{
		request:         messages.ByName("StreamingRecognizeRequest"),
		streamingConfig: messages.ByName("StreamingRecognitionConfig"),
		recognition:     messages.ByName("RecognitionConfig"),
		speechContext:   messages.ByName("SpeechContext"),
		response:        messages.ByName("StreamingRecognizeResponse"),
		result:          messages.ByName("StreamingRecognitionResult"),
		alternative:     messages.ByName("SpeechRecognitionAlternative"),
	}, nil
}

func scalarField(
	name string,
	number int32,
	kind descriptorpb.FieldDescriptorProto_Type,
	label descriptorpb.FieldDescriptorProto_Label,
) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Type:   kind.Enum(),
		Label:  label.Enum(),
	}
}

func messageField(name string, number int32, typeName string, label descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto {
	field := scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, label)
	field.TypeName = proto.String("." + asrPackage + "." + typeName)
	return field
}

func enumField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	field := scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_ENUM, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL)
	field.TypeName = proto.String("." + asrPackage + "." + typeName)
	return field
}

func inOneof(field *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	field.OneofIndex = proto.Int32(0)
	return field
}

func fieldOf(md protoreflect.MessageDescriptor, name protoreflect.Name) protoreflect.FieldDescriptor {
	field := md.Fields().ByName(name)
	if field == nil {
		panic(fmt.Sprintf("riva: %s has no field %s", md.FullName(), name))
	}
	return field
}

// newConfigRequest builds the first message of a StreamingRecognize call.
func newConfigRequest(cfg StreamConfig) *dynamicpb.Message {
	recognition := dynamicpb.NewMessage(schema.recognition)
	recognition.Set(fieldOf(schema.recognition, "encoding"), protoreflect.ValueOfEnum(encodingLinearPCM))
	recognition.Set(fieldOf(schema.recognition, "sample_rate_hertz"), protoreflect.ValueOfInt32(sampleRateHertz))
	recognition.Set(fieldOf(schema.recognition, "language_code"), protoreflect.ValueOfString(cfg.LanguageCode))
	recognition.Set(fieldOf(schema.recognition, "max_alternatives"), protoreflect.ValueOfInt32(1))
	recognition.Set(fieldOf(schema.recognition, "audio_channel_count"), protoreflect.ValueOfInt32(1))
	recognition.Set(fieldOf(schema.recognition, "enable_automatic_punctuation"), protoreflect.ValueOfBool(cfg.AutomaticPunctuation))
	if cfg.Model != "" {
		recognition.Set(fieldOf(schema.recognition, "model"), protoreflect.ValueOfString(cfg.Model))
	}

	if len(cfg.SpeechPhrases) > 0 {
		contexts := recognition.Mutable(fieldOf(schema.recognition, "speech_contexts")).List()
		for _, phrase := range cfg.SpeechPhrases {
			text := cleanSegment(phrase.Phrase)
			if text == "" {
				continue
			}
			element := contexts.NewElement()
			sc := element.Message()
			sc.Mutable(fieldOf(schema.speechContext, "phrases")).List().Append(protoreflect.ValueOfString(text))
			sc.Set(fieldOf(schema.speechContext, "boost"), protoreflect.ValueOfFloat32(phrase.Boost))
			contexts.Append(element)
		}
	}

	streaming := dynamicpb.NewMessage(schema.streamingConfig)
	streaming.Set(fieldOf(schema.streamingConfig, "config"), protoreflect.ValueOfMessage(recognition))
	streaming.Set(fieldOf(schema.streamingConfig, "interim_results"), protoreflect.ValueOfBool(true))

	req := dynamicpb.NewMessage(schema.request)
	req.Set(fieldOf(schema.request, "streaming_config"), protoreflect.ValueOfMessage(streaming))
	return req
}

func newAudioRequest(chunk []byte) *dynamicpb.Message {
	req := dynamicpb.NewMessage(schema.request)
	req.Set(fieldOf(schema.request, "audio_content"), protoreflect.ValueOfBytes(chunk))
	return req
}

// recognitionResult is the decoded top alternative of one streaming result.
type recognitionResult struct {
	transcript string
	final      bool
	stability  float32
}

func decodeResults(resp protoreflect.Message) []recognitionResult {
	list := resp.Get(fieldOf(schema.response, "results")).List()
	out := make([]recognitionResult, 0, list.Len())
	for i := range list.Len() {
		result := list.Get(i).Message()
		alternatives := result.Get(fieldOf(schema.result, "alternatives")).List()
		if alternatives.Len() == 0 {
			continue
		}
		top := alternatives.Get(0).Message()
		out = append(out, recognitionResult{
			transcript: top.Get(fieldOf(schema.alternative, "transcript")).String(),
			final:      result.Get(fieldOf(schema.result, "is_final")).Bool(),
			stability:  float32(result.Get(fieldOf(schema.result, "stability")).Float()),
		})
	}
	return out
}
